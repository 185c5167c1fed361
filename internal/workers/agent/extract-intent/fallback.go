// internal/workers/agent/extract-intent/fallback.go
package extractintent

import (
	"regexp"
	"strings"

	"pharmacy-agent/internal/models"
)

var (
	uploadPattern  = regexp.MustCompile(`(?i)\b(?:upload|submit|send|verify|have)\b.*?\bprescription\b(?:\s+(?:for|of))?\s*(.*)$`)
	historyPattern = regexp.MustCompile(`(?i)\b(?:history|previous orders?|past orders?|my orders|purchases)\b`)
	restockPattern = regexp.MustCompile(`(?i)\brestock\s+(.+?)\s+(?:by|with)\s+([+-]?\d+)`)
	adjustPattern  = regexp.MustCompile(`(?i)\b(add|remove)\s+([+-]?\d+)\s+(?:units?\s+(?:of\s+)?)?(.+?)\s+(?:to|from)\s+(?:the\s+)?(?:stock|inventory)\b`)
	orderPattern   = regexp.MustCompile(`(?i)\b(?:order|buy|purchase)\s+([+-]?\d+)?\s*(.*)$`)

	inventoryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:price|stock|availability)\s+(?:of|for)\s+(.+)$`),
		regexp.MustCompile(`(?i)\bdo you (?:have|sell|stock)\s+(?:any\s+)?(.+)$`),
		regexp.MustCompile(`(?i)\b(?:is|are)\s+(.+?)\s+(?:available|in stock)\b`),
		regexp.MustCompile(`(?i)\b(?:check|find)\s+(?:inventory\s+(?:for\s+)?)?(.+)$`),
	}

	backReferencePattern = regexp.MustCompile(`(?i)\b(?:it|that|same|again|another|more)\b`)

	leadingFillers  = []string{"units of ", "unit of ", "packs of ", "more of ", "some ", "any ", "of ", "the ", "x "}
	trailingFillers = []string{" please", " for me", " now"}
	pronouns        = map[string]bool{"it": true, "that": true, "this": true, "them": true, "same": true, "the same": true, "more": true, "": true}
)

// ParseFallback maps text onto raw extraction fields with fixed patterns.
// The result goes through the same normalization as model output.
func ParseFallback(text string) map[string]interface{} {
	text = strings.TrimSpace(text)
	raw := map[string]interface{}{"intent": string(models.IntentSmalltalk)}

	if m := uploadPattern.FindStringSubmatch(text); m != nil {
		raw["intent"] = string(models.IntentUploadPrescription)
		raw["medicine_name"] = cleanName(m[1])
		return raw
	}

	if historyPattern.MatchString(text) {
		raw["intent"] = string(models.IntentHistory)
		return raw
	}

	if m := restockPattern.FindStringSubmatch(text); m != nil {
		raw["intent"] = string(models.IntentUpdateStock)
		raw["medicine_name"] = cleanName(m[1])
		raw["delta"] = m[2]
		return raw
	}

	if m := adjustPattern.FindStringSubmatch(text); m != nil {
		delta := strings.TrimPrefix(m[2], "+")
		if strings.EqualFold(m[1], "remove") && !strings.HasPrefix(delta, "-") {
			delta = "-" + delta
		}
		raw["intent"] = string(models.IntentUpdateStock)
		raw["medicine_name"] = cleanName(m[3])
		raw["delta"] = delta
		return raw
	}

	if m := orderPattern.FindStringSubmatch(text); m != nil {
		raw["intent"] = string(models.IntentOrder)
		if m[1] != "" {
			raw["quantity"] = m[1]
		}
		raw["medicine_name"] = cleanName(m[2])
		return raw
	}

	for _, p := range inventoryPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			raw["intent"] = string(models.IntentInventory)
			raw["medicine_name"] = cleanName(m[1])
			return raw
		}
	}

	return raw
}

// cleanName strips punctuation, filler words and pronouns from a captured
// medicine phrase.
func cleanName(s string) string {
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "?.!,;:"))

	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(s)
		for _, f := range leadingFillers {
			if strings.HasPrefix(lower, f) {
				s = strings.TrimSpace(s[len(f):])
				changed = true
				break
			}
		}
		lower = strings.ToLower(s)
		for _, f := range trailingFillers {
			if strings.HasSuffix(lower, f) {
				s = strings.TrimSpace(s[:len(s)-len(f)])
				changed = true
				break
			}
		}
	}

	if pronouns[strings.ToLower(s)] {
		return ""
	}
	return s
}

func refersBack(text string) bool {
	return backReferencePattern.MatchString(text)
}
