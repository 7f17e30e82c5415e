package localdoc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

var (
	vinPattern    = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)
	policyPattern = regexp.MustCompile(`(?i)policy\s*(?:no\.?|number|#)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,})`)
	claimPattern  = regexp.MustCompile(`(?i)claim\s*(?:no\.?|number|#)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,})`)
	platePattern  = regexp.MustCompile(`(?i)(?:license\s*)?plate\s*(?:no\.?|number|#)?\s*[:#]?\s*([A-Z0-9-]{2,10})\b`)
	isoDate       = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	usDate        = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	totalPattern  = regexp.MustCompile(`(?i)total[^\n$0-9]{0,24}\$?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	amountPattern = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]{1,2})?`)
)

// scanText is the pattern fallback for text the external analyzer never saw.
// It only fills fields it can anchor to an explicit label or format.
func scanText(text string) *domain.DocumentExtraction {
	doc := &domain.DocumentExtraction{DocumentType: classifyDocument(text)}

	if m := vinPattern.FindString(text); m != "" {
		doc.VIN = m
	}
	if m := policyPattern.FindStringSubmatch(text); m != nil {
		doc.PolicyNumber = strings.ToUpper(m[1])
	}
	if m := claimPattern.FindStringSubmatch(text); m != nil {
		doc.ClaimNumber = strings.ToUpper(m[1])
	}
	if m := platePattern.FindStringSubmatch(text); m != nil {
		doc.LicensePlate = strings.ToUpper(m[1])
	}
	if m := isoDate.FindString(text); m != "" {
		doc.IncidentDate = m
	} else if m := usDate.FindString(text); m != "" {
		doc.IncidentDate = m
	}
	if m := totalPattern.FindStringSubmatch(text); m != nil {
		if amount, ok := parseAmount(m[1]); ok {
			doc.RepairTotal = &amount
		}
	}

	return doc
}

func classifyDocument(text string) string {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "estimate"):
		return "repair-estimate"
	case strings.Contains(lowered, "police"):
		return "police-report"
	case strings.Contains(lowered, "policy"):
		return "policy-document"
	default:
		return "document"
	}
}

func parseAmount(raw string) (float64, bool) {
	match := amountPattern.FindString(raw)
	if match == "" {
		return 0, false
	}
	cleaned := strings.ReplaceAll(match, ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}
