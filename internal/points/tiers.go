package points

import "math/rand"

// Tier identifies one of the three equal point-value ranges used for top-slot
// randomization.
type Tier int

const (
	TierLow Tier = iota
	TierMid
	TierHigh
)

// TierFor places a point value within the low/mid/high partition of
// [1, maxPoints].
func TierFor(pts, maxPoints int) Tier {
	lowMax := maxPoints / 3
	midMax := (2 * maxPoints) / 3
	switch {
	case pts > midMax:
		return TierHigh
	case pts > lowMax:
		return TierMid
	default:
		return TierLow
	}
}

// TieredOrder produces the display order for the collection: one random pick
// from each non-empty tier occupies the first slots (shuffled among
// themselves), and the remaining entries follow in fully randomized order.
//
// The top slots guarantee visible variety every run regardless of the score
// distribution; the shuffled remainder avoids a static greatest-hits feel.
// With fewer than three tiers populated the top section shrinks to the number
// of non-empty tiers.
func (s *Store) TieredOrder(rng *rand.Rand, maxPoints int) []string {
	if maxPoints <= 0 {
		maxPoints = 50
	}

	tiers := map[Tier][]string{}
	for _, key := range s.OrderedKeys() {
		entry := s.entries[key]
		if entry.Points <= 0 {
			continue
		}
		tier := TierFor(entry.Points, maxPoints)
		tiers[tier] = append(tiers[tier], key)
	}

	var top []string
	used := map[string]struct{}{}
	for _, tier := range []Tier{TierHigh, TierMid, TierLow} {
		keys := tiers[tier]
		if len(keys) == 0 {
			continue
		}
		pick := keys[rng.Intn(len(keys))]
		top = append(top, pick)
		used[pick] = struct{}{}
	}
	rng.Shuffle(len(top), func(i, j int) { top[i], top[j] = top[j], top[i] })

	var rest []string
	for _, tier := range []Tier{TierHigh, TierMid, TierLow} {
		for _, key := range tiers[tier] {
			if _, ok := used[key]; !ok {
				rest = append(rest, key)
			}
		}
	}
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	return append(top, rest...)
}
