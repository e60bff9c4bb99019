// Package stats implements the robust statistics used for auction price
// outlier filtering. It is pure computation: no storage, no clocks.
package stats

import (
	"math"
	"sort"
)

// Observation is a single priced listing. Quantity weights market-value
// sums only; the location and scale estimates use prices alone.
type Observation struct {
	Price    float64
	Quantity int64
}

// BoundKind identifies which dispersion estimate produced the outlier bounds.
type BoundKind int

const (
	// BoundNone means no usable scale estimate; every observation is an inlier.
	BoundNone BoundKind = iota
	// BoundMAD means bounds derive from the median absolute deviation.
	BoundMAD
	// BoundIQR means bounds derive from the interquartile range.
	BoundIQR
)

func (b BoundKind) String() string {
	switch b {
	case BoundMAD:
		return "mad"
	case BoundIQR:
		return "iqr"
	default:
		return "none"
	}
}

// Params tunes the outlier decision rule.
type Params struct {
	// MinSamples is the minimum sample size for the MAD rule. Below
	// max(3, MinSamples) the filter falls back to IQR bounds.
	MinSamples int
	// MADFactor is the k in [median - k*sigma_mad, median + k*sigma_mad].
	MADFactor float64
	// IQRFactor is the k in [Q1 - k*IQR, Q3 + k*IQR].
	IQRFactor float64
}

// DefaultParams returns the production tunables.
func DefaultParams() Params {
	return Params{
		MinSamples: 10,
		MADFactor:  3.0,
		IQRFactor:  1.5,
	}
}

// madNormalConsistency scales MAD to the standard deviation of a normal
// distribution (1/Phi^-1(0.75)).
const madNormalConsistency = 1.4826

// Result is the outcome of analyzing one group of observations.
type Result struct {
	N int

	Median   float64
	Q1       float64
	Q3       float64
	MAD      float64
	SigmaMAD float64
	IQR      float64

	Bound BoundKind
	Lower float64
	Upper float64

	// InlierMask[i] reports whether obs[i] fell within the active bounds.
	InlierMask   []bool
	InlierCount  int
	OutlierCount int

	// RobustPrice is the median of inlier prices. When no filtering was
	// applicable it equals the plain median.
	RobustPrice float64

	TotalQuantity     int64
	TotalMarketValue  float64
	InlierMarketValue float64
}

// Analyze classifies each observation as inlier or outlier and derives a
// robust central price for the group.
//
// Decision rule: MAD bounds when n >= max(3, MinSamples) and sigma_mad > 0;
// otherwise IQR bounds when IQR > 0; otherwise no filtering (all inliers).
// An observation is an outlier iff its price is strictly outside the
// active bounds.
func Analyze(obs []Observation, p Params) Result {
	n := len(obs)
	res := Result{
		N:          n,
		InlierMask: make([]bool, n),
	}
	if n == 0 {
		return res
	}

	prices := make([]float64, n)
	for i, o := range obs {
		prices[i] = o.Price
		res.TotalQuantity += o.Quantity
		res.TotalMarketValue += o.Price * float64(o.Quantity)
	}

	sorted := make([]float64, n)
	copy(sorted, prices)
	sort.Float64s(sorted)

	res.Median = Percentile(sorted, 0.50)
	// Quartiles for the fallback bounds use the exclusive (n+1)-based
	// estimator: on small samples it keeps the IQR sensitive to a lone
	// extreme value, which the inclusive estimator collapses to zero.
	res.Q1 = QuantileExclusive(sorted, 0.25)
	res.Q3 = QuantileExclusive(sorted, 0.75)
	res.IQR = res.Q3 - res.Q1

	deviations := make([]float64, n)
	for i, price := range prices {
		deviations[i] = math.Abs(price - res.Median)
	}
	sort.Float64s(deviations)
	res.MAD = Percentile(deviations, 0.50)
	res.SigmaMAD = madNormalConsistency * res.MAD

	minSamples := p.MinSamples
	if minSamples < 3 {
		minSamples = 3
	}

	switch {
	case n >= minSamples && res.SigmaMAD > 0:
		res.Bound = BoundMAD
		res.Lower = res.Median - p.MADFactor*res.SigmaMAD
		res.Upper = res.Median + p.MADFactor*res.SigmaMAD
	case res.IQR > 0:
		res.Bound = BoundIQR
		res.Lower = res.Q1 - p.IQRFactor*res.IQR
		res.Upper = res.Q3 + p.IQRFactor*res.IQR
	default:
		// Degenerate sample (all prices equal or too few distinct values):
		// no usable scale, nothing is filtered.
		res.Bound = BoundNone
		res.Lower = math.Inf(-1)
		res.Upper = math.Inf(1)
	}

	inlierPrices := make([]float64, 0, n)
	for i, o := range obs {
		inlier := o.Price >= res.Lower && o.Price <= res.Upper
		res.InlierMask[i] = inlier
		if inlier {
			res.InlierCount++
			res.InlierMarketValue += o.Price * float64(o.Quantity)
			inlierPrices = append(inlierPrices, o.Price)
		}
	}
	res.OutlierCount = n - res.InlierCount

	if len(inlierPrices) > 0 {
		sort.Float64s(inlierPrices)
		res.RobustPrice = Percentile(inlierPrices, 0.50)
	} else {
		// Bounds can never exclude the median itself, but keep a defined
		// value for the empty case.
		res.RobustPrice = res.Median
	}

	return res
}

// Percentile computes a percentile over a pre-sorted ascending sample using
// linear interpolation between closest ranks. p is in [0, 1].
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// QuantileExclusive computes a quantile over a pre-sorted ascending sample
// using the exclusive method (rank = p*(n+1), clamped to the sample range).
func QuantileExclusive(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	pos := p * float64(n+1) // 1-based rank
	if pos <= 1 {
		return sorted[0]
	}
	if pos >= float64(n) {
		return sorted[n-1]
	}

	lower := int(pos)
	frac := pos - float64(lower)
	return sorted[lower-1] + frac*(sorted[lower]-sorted[lower-1])
}
