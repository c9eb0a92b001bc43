package collections

import (
	"context"
	"errors"

	"curator/internal/resilience"
	"curator/internal/services/plex"
)

// FailedMove records an item whose positional move did not take.
type FailedMove struct {
	RatingKey string
	Err       error
}

// OrderResult summarizes an ordering pass. Aborted means the sort mode could
// not be switched to custom, so no moves were attempted at all.
type OrderResult struct {
	Succeeded int
	Failed    []FailedMove
	Aborted   bool
}

var errNotAMember = errors.New("item is not a collection member")

// applyOrder switches the collection to custom sort, then walks the desired
// order front to back, moving each item directly after the previous
// successfully placed one. The anchor only advances on success, so a failed
// move leaves later items positioned relative to the last known-good anchor
// instead of a phantom position. Non-members are recorded as failed without
// issuing a call.
func (r *Reconciler) applyOrder(ctx context.Context, collectionKey string, ordered []string, members map[string]struct{}) OrderResult {
	var result OrderResult

	// Without custom sort the server ignores positional moves, so there is
	// nothing useful to attempt.
	if _, err := resilience.Execute(ctx, r.runner, "set collection sort", r.policy,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.server.SetCollectionSort(ctx, collectionKey, plex.SortCustom)
		}); err != nil {
		r.log.Warn("custom sort mode unavailable, skipping ordering", "error", err)
		result.Aborted = true
		return result
	}

	anchor := ""
	for _, ratingKey := range ordered {
		if ctx.Err() != nil {
			break
		}
		if _, member := members[ratingKey]; !member {
			result.Failed = append(result.Failed, FailedMove{RatingKey: ratingKey, Err: errNotAMember})
			continue
		}
		key := ratingKey
		after := anchor
		_, err := resilience.Execute(ctx, r.runner, "move collection item", r.policy,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, r.server.MoveCollectionItem(ctx, collectionKey, key, after)
			})
		if err != nil {
			r.log.Warn("collection move failed", "rating_key", key, "error", err)
			result.Failed = append(result.Failed, FailedMove{RatingKey: key, Err: err})
			continue
		}
		result.Succeeded++
		anchor = key
	}
	return result
}
