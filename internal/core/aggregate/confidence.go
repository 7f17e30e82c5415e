package aggregate

// Confidence scoring constants. The overall score rewards corroboration
// across modalities and additional files, and penalizes detected conflicts.
const (
	confidenceBase    = 0.50
	modalityBonus     = 0.10
	extraFileBonus    = 0.02
	extraFileBonusCap = 0.10
	conflictPenalty   = 0.05
)

func confidenceScore(distinctMediaTypes, fileCount, conflictCount int) float64 {
	score := confidenceBase
	score += float64(distinctMediaTypes) * modalityBonus

	if fileCount > 1 {
		bonus := float64(fileCount-1) * extraFileBonus
		if bonus > extraFileBonusCap {
			bonus = extraFileBonusCap
		}
		score += bonus
	}

	score -= float64(conflictCount) * conflictPenalty

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
