package stats

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genPrices() gopter.Gen {
	return gen.SliceOf(gen.Float64Range(1, 1_000_000))
}

func TestRobustFilterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("inliers and outliers partition the sample", prop.ForAll(
		func(prices []float64) bool {
			res := Analyze(obsFromPrices(prices...), DefaultParams())
			return res.InlierCount+res.OutlierCount == len(prices)
		},
		genPrices(),
	))

	properties.Property("identical prices are never filtered", prop.ForAll(
		func(price float64, n int) bool {
			prices := make([]float64, n)
			for i := range prices {
				prices[i] = price
			}
			res := Analyze(obsFromPrices(prices...), DefaultParams())
			return res.OutlierCount == 0 && res.Bound == BoundNone
		},
		gen.Float64Range(1, 1_000_000),
		gen.IntRange(1, 50),
	))

	properties.Property("robust price lies within the sample range", prop.ForAll(
		func(prices []float64) bool {
			if len(prices) == 0 {
				return true
			}
			res := Analyze(obsFromPrices(prices...), DefaultParams())
			min, max := prices[0], prices[0]
			for _, p := range prices {
				if p < min {
					min = p
				}
				if p > max {
					max = p
				}
			}
			return res.RobustPrice >= min && res.RobustPrice <= max
		},
		genPrices(),
	))

	properties.Property("classification is independent of observation order", prop.ForAll(
		func(prices []float64) bool {
			forward := Analyze(obsFromPrices(prices...), DefaultParams())

			reversed := make([]float64, len(prices))
			for i, p := range prices {
				reversed[len(prices)-1-i] = p
			}
			backward := Analyze(obsFromPrices(reversed...), DefaultParams())

			return forward.InlierCount == backward.InlierCount &&
				forward.OutlierCount == backward.OutlierCount &&
				forward.Bound == backward.Bound &&
				forward.RobustPrice == backward.RobustPrice
		},
		genPrices(),
	))

	properties.Property("inlier market value never exceeds total market value", prop.ForAll(
		func(prices []float64) bool {
			res := Analyze(obsFromPrices(prices...), DefaultParams())
			return res.InlierMarketValue <= res.TotalMarketValue+1e-6
		},
		genPrices(),
	))

	properties.TestingRun(t)
}
