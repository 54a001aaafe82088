package webhook

import "strings"

// SentimentScore scores text by keyword hits: positive matches minus
// negative matches. Negative return values mean net-negative sentiment.
// Deliberately crude; a scoring service can replace it behind the same
// signature.
func SentimentScore(text string, positive, negative []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, kw := range positive {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score++
		}
	}
	for _, kw := range negative {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score--
		}
	}
	return score
}

// FirstUrgentKeyword returns the first urgent keyword found in an inbound
// message, or "" when none match.
func FirstUrgentKeyword(text string, keywords []string) string {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}
