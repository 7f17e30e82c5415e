package aggregate

import "strings"

// severityLevels is the fixed ordinal scale, lowest to highest. The
// normalized severity score is rank/(len-1).
var severityLevels = []string{"minimal", "minor", "moderate", "severe", "critical"}

// severityKeywords maps each rank to the free-text fragments that imply it.
// Matching is case-insensitive substring, highest rank checked first.
var severityKeywords = [][]string{
	{"minimal", "cosmetic", "scratch", "negligible"},
	{"minor", "light", "low"},
	{"moderate", "medium", "dent"},
	{"severe", "major", "heavy", "collision"},
	{"critical", "total", "extensive", "rollover", "fire"},
}

// severityRank maps one free-text severity or incident-type signal onto the
// scale. Strings matching no keyword carry no signal.
func severityRank(signal string) (int, bool) {
	lowered := strings.ToLower(signal)
	if strings.TrimSpace(lowered) == "" {
		return 0, false
	}
	for rank := len(severityKeywords) - 1; rank >= 0; rank-- {
		for _, keyword := range severityKeywords[rank] {
			if strings.Contains(lowered, keyword) {
				return rank, true
			}
		}
	}
	return 0, false
}

// overallSeverity takes the maximum rank across all signals. Zero signals
// yield the lowest rank and score 0.
func overallSeverity(signals []string) (label string, score float64) {
	maxRank := 0
	for _, signal := range signals {
		if rank, ok := severityRank(signal); ok && rank > maxRank {
			maxRank = rank
		}
	}
	return severityLevels[maxRank], float64(maxRank) / float64(len(severityLevels)-1)
}
