package stats

import "sort"

// PriceSummary describes the filtered price distribution of one group.
// All percentiles are computed over inliers only; DatapointCount is the
// inlier count and OutlierCount the number of filtered observations.
type PriceSummary struct {
	Min    float64
	Max    float64
	Median float64
	Avg    float64
	P10    float64
	P25    float64
	P75    float64
	P90    float64

	DatapointCount int
	OutlierCount   int
}

// Summarize runs the outlier filter over obs and summarizes the surviving
// price distribution. A group with zero observations yields a zero summary.
func Summarize(obs []Observation, p Params) PriceSummary {
	res := Analyze(obs, p)

	inliers := make([]float64, 0, res.InlierCount)
	for i, o := range obs {
		if res.InlierMask[i] {
			inliers = append(inliers, o.Price)
		}
	}

	summary := PriceSummary{
		DatapointCount: res.InlierCount,
		OutlierCount:   res.OutlierCount,
	}
	if len(inliers) == 0 {
		return summary
	}

	sort.Float64s(inliers)

	sum := 0.0
	for _, price := range inliers {
		sum += price
	}

	summary.Min = inliers[0]
	summary.Max = inliers[len(inliers)-1]
	summary.Median = Percentile(inliers, 0.50)
	summary.Avg = sum / float64(len(inliers))
	summary.P10 = Percentile(inliers, 0.10)
	summary.P25 = Percentile(inliers, 0.25)
	summary.P75 = Percentile(inliers, 0.75)
	summary.P90 = Percentile(inliers, 0.90)

	return summary
}
