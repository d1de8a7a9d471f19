package review

import (
	"math"

	"github.com/Clark-Hu/review-rateable/internal/domain"
)

// Histogram bounds. Buckets outside this range are never reported.
const (
	MinStar = 1
	MaxStar = 5
)

// zeroFill returns a histogram holding exactly the buckets MinStar..MaxStar.
func zeroFill(raw map[int]int) map[int]int {
	counts := make(map[int]int, MaxStar-MinStar+1)
	for star := MinStar; star <= MaxStar; star++ {
		counts[star] = raw[star]
	}
	return counts
}

// buildStats derives percentages and the grand total from a histogram.
// Percentages are rounded to two decimals and are all zero when total is zero.
func buildStats(raw map[int]int) domain.RatingStats {
	counts := zeroFill(raw)

	total := 0
	for _, n := range counts {
		total += n
	}

	percentages := make(map[int]float64, len(counts))
	for star, n := range counts {
		if total == 0 {
			percentages[star] = 0
			continue
		}
		percentages[star] = round2(float64(n) / float64(total) * 100)
	}

	return domain.RatingStats{Counts: counts, Percentages: percentages, Total: total}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
