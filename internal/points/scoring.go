package points

// Suggestion is one item proposed by the recommendation chain for the current
// run, carrying whatever identity was resolvable at suggestion time.
type Suggestion struct {
	Key        string
	Title      string
	Year       int
	RatingKey  string
	ExternalID int64
}

// Stats summarizes one scoring pass.
type Stats struct {
	SuggestedNow int
	ResetToMax   int
	Decayed      int
	Removed      int
	Added        int
	Total        int
}

// ApplyScoringPass applies the boost/decay/eviction rules for one run.
//
// Every suggested item gains a point (capped at maxPoints) and is marked as
// suggested; every other entry loses a point and is deleted when it reaches
// zero. Items that stop being suggested therefore age out over maxPoints runs,
// while repeatedly suggested items saturate at the cap and stay hot.
func (s *Store) ApplyScoringPass(suggested []Suggestion, maxPoints int) Stats {
	if maxPoints <= 0 {
		maxPoints = 50
	}
	var stats Stats

	suggestedKeys := make(map[string]struct{}, len(suggested))
	for _, sug := range suggested {
		key := sug.Key
		if key == "" {
			key = TitleKey(sug.Title)
		}

		if _, dup := suggestedKeys[key]; dup {
			continue
		}

		entry, exists := s.entries[key]
		if !exists {
			entry = &Entry{Title: sug.Title}
			s.entries[key] = entry
			stats.Added++
		}

		// An entry already at the cap gains nothing from the boost; that
		// re-suggestion is counted separately as a reset.
		if entry.Points >= maxPoints {
			entry.Points = maxPoints
			stats.ResetToMax++
		} else {
			entry.Points++
		}
		entry.Suggested = true

		// Refresh identity from this run's resolution.
		if sug.Title != "" {
			entry.Title = sug.Title
		}
		if sug.Year != 0 {
			entry.Year = sug.Year
		}
		if sug.RatingKey != "" {
			entry.RatingKey = sug.RatingKey
		}
		if sug.ExternalID != 0 {
			entry.ExternalID = sug.ExternalID
		}

		suggestedKeys[key] = struct{}{}
	}
	stats.SuggestedNow = len(suggestedKeys)

	for key, entry := range s.entries {
		if _, ok := suggestedKeys[key]; ok {
			continue
		}
		entry.Suggested = false
		entry.Points--
		if entry.Points <= 0 {
			delete(s.entries, key)
			stats.Removed++
		} else {
			stats.Decayed++
		}
	}

	stats.Total = len(s.entries)
	return stats
}
