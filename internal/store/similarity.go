package store

import (
	"sort"
	"strings"
)

// similarityFloor is the minimum score for a past goal to count as
// similar. Scores are token-overlap ratios in [0, 1].
const similarityFloor = 0.3

// SimilarGoals returns up to three past goals most similar to the given
// goal text, best first. The lookup is best-effort context for logging;
// planning never depends on it.
func (s *Store) SimilarGoals(goal, user string) ([]GoalRecord, error) {
	// Scan the whole log for the user; goal logs are small and local.
	records, err := s.RecentGoals(1000, user)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec   GoalRecord
		score float64
	}
	var matches []scored
	for _, r := range records {
		sc := similarity(goal, r.Goal)
		if sc >= similarityFloor {
			matches = append(matches, scored{r, sc})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}

	out := make([]GoalRecord, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.rec)
	}
	return out, nil
}

// similarity scores two goal strings by lowercase token overlap
// (intersection over union).
func similarity(a, b string) float64 {
	ta := tokens(a)
	tb := tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for tok := range ta {
		if tb[tok] {
			common++
		}
	}
	union := len(ta) + len(tb) - common
	return float64(common) / float64(union)
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,:;!?\"'")
		if f != "" {
			out[f] = true
		}
	}
	return out
}
