package trend

import (
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

// Thresholds controls the classification bands. Both values are percentages
// and are configuration, not constants, because the right cutoffs depend on
// how gusty the spot is.
type Thresholds struct {
	StablePct float64 // |change| below this is stable
	StrongPct float64 // |change| at or above this is a strong trend
}

func DefaultThresholds() Thresholds {
	return Thresholds{StablePct: 10, StrongPct: 25}
}

// Compute classifies the wind trend from recent measurements. The analysis
// window is 30 minutes when at least an hour of data exists, 15 minutes when
// less; fewer than 2 samples overall, or an empty comparison window, yields
// insufficient_data. Measurements may be in any order.
func Compute(measurements []models.Measurement, now time.Time, th Thresholds) models.TrendWindow {
	tw := models.TrendWindow{
		Classification: models.TrendInsufficient,
		ComputedAt:     now,
	}
	if len(measurements) < 2 {
		return tw
	}

	oldest := measurements[0].MeasuredAt
	for _, m := range measurements[1:] {
		if m.MeasuredAt.Before(oldest) {
			oldest = m.MeasuredAt
		}
	}

	window := 15 * time.Minute
	if now.Sub(oldest) >= time.Hour {
		window = 30 * time.Minute
	}
	tw.WindowMinutes = int(window.Minutes())

	currentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)

	var curSum, prevSum float64
	var curN, prevN int
	for _, m := range measurements {
		switch {
		case !m.MeasuredAt.Before(currentStart) && !m.MeasuredAt.After(now):
			curSum += m.WindSpeed
			curN++
		case !m.MeasuredAt.Before(previousStart) && m.MeasuredAt.Before(currentStart):
			prevSum += m.WindSpeed
			prevN++
		}
	}
	if curN == 0 || prevN == 0 {
		return tw
	}

	tw.CurrentAvg = curSum / float64(curN)
	tw.PreviousAvg = prevSum / float64(prevN)
	tw.AbsoluteChange = tw.CurrentAvg - tw.PreviousAvg

	if tw.PreviousAvg == 0 {
		if tw.CurrentAvg == 0 {
			tw.Classification = models.TrendStable
		} else {
			tw.PercentChange = 100
			tw.Classification = models.TrendIncreasingStrong
		}
		return tw
	}

	tw.PercentChange = tw.AbsoluteChange / tw.PreviousAvg * 100
	tw.Classification = classify(tw.PercentChange, th)
	return tw
}

func classify(pct float64, th Thresholds) models.TrendClassification {
	abs := pct
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < th.StablePct:
		return models.TrendStable
	case pct >= th.StrongPct:
		return models.TrendIncreasingStrong
	case pct > 0:
		return models.TrendIncreasing
	case pct <= -th.StrongPct:
		return models.TrendDecreasingStrong
	default:
		return models.TrendDecreasing
	}
}
