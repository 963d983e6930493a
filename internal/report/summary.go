package report

import (
	"github.com/montanaflynn/stats"
)

// Summary describes the score distribution of the registry of codes.
type Summary struct {
	Codes   int            `json:"codes"`
	Scored  int            `json:"scored"`
	Prizes  int            `json:"prizes"`
	Mean    float64        `json:"mean"`
	Median  float64        `json:"median"`
	Max     float64        `json:"max"`
	ByType  map[string]int `json:"by_type"`
	ByStand map[string]int `json:"by_stand"`
}

// Summarize counts the registry by category and stand and computes score
// statistics over codes with a positive score. A view with no scored codes
// has zero statistics.
func Summarize(v *View) Summary {
	s := Summary{
		ByType:  make(map[string]int),
		ByStand: make(map[string]int),
	}
	if v == nil {
		return s
	}
	s.Codes = len(v.Codes)
	s.Prizes = len(v.Prizes)

	var scores []float64
	for _, r := range v.Codes {
		s.ByType[label(r.Type)]++
		s.ByStand[label(r.Stand)]++
		if r.Score > 0 {
			scores = append(scores, float64(r.Score))
		}
	}
	s.Scored = len(scores)
	if s.Scored == 0 {
		return s
	}

	s.Mean, _ = stats.Mean(scores)
	s.Median, _ = stats.Median(scores)
	s.Max, _ = stats.Max(scores)
	return s
}

func label(v string) string {
	if v == "" {
		return "SIN DATO"
	}
	return v
}
