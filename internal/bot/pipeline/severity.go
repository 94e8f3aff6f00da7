package pipeline

import (
	"math"

	"github.com/toxbot/toxbot/internal/bot/constants"
)

// ThresholdMet reports whether a toxicity score reaches the guild's alert
// threshold. The comparison truncates the percentage; banding rounds it
// instead. The mismatch is intentional and relied upon around band edges.
func ThresholdMet(toxicity float64, minimumToxicity int) bool {
	return int(toxicity*100) >= minimumToxicity
}

// SeverityPercent returns the rounded percentage shown in alert titles.
func SeverityPercent(toxicity float64) int {
	return int(math.Round(toxicity * 100))
}

// SeverityColor maps a toxicity score to its severity band color:
// low for at most 30%, medium up to 60%, high above that.
func SeverityColor(toxicity float64) int {
	percent := SeverityPercent(toxicity)
	switch {
	case percent <= 30:
		return constants.LowSeverityColor
	case percent <= 60:
		return constants.MediumSeverityColor
	default:
		return constants.HighSeverityColor
	}
}
