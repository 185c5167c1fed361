// Package sanitizefields normalizes raw extracted fields into bounded, typed
// values. Every function is total: malformed input yields a default, never
// an error.
package sanitizefields

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"pharmacy-agent/internal/models"
)

const (
	MinQuantity     = 1
	MaxQuantity     = 100
	DefaultQuantity = 1
	MaxDeltaAbs     = 1000
)

// SanitizeIntent lower-cases and trims raw, returning smalltalk for anything
// outside the intent enumeration.
func SanitizeIntent(raw interface{}) models.Intent {
	s, ok := raw.(string)
	if !ok {
		return models.IntentSmalltalk
	}
	intent := models.Intent(strings.ToLower(strings.TrimSpace(s)))
	if !intent.IsValid() {
		return models.IntentSmalltalk
	}
	return intent
}

// SanitizeText trims raw. The empty string means absent. Numbers are
// accepted so identifiers like 1001 survive a loosely typed model reply.
func SanitizeText(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return strings.TrimSpace(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// SanitizeQuantity coerces raw to an integer in [MinQuantity, MaxQuantity].
// Non-numeric input and values below the minimum become DefaultQuantity.
// Any finite value above the maximum, however large, becomes MaxQuantity.
func SanitizeQuantity(raw interface{}) int {
	f, ok := toFloat(raw)
	if !ok || f < MinQuantity {
		return DefaultQuantity
	}
	if f > MaxQuantity {
		return MaxQuantity
	}
	return int(f)
}

// SanitizeDelta coerces raw to a signed stock adjustment. It returns nil when
// raw is not numeric or its magnitude exceeds MaxDeltaAbs.
func SanitizeDelta(raw interface{}) *int {
	d, ok := toInt(raw)
	if !ok || d > MaxDeltaAbs || d < -MaxDeltaAbs {
		return nil
	}
	return &d
}

// toInt truncates fractional values toward zero. Values beyond the int32
// range are treated as non-numeric.
func toInt(raw interface{}) (int, bool) {
	f, ok := toFloat(raw)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// toFloat reports false for non-numeric, NaN and infinite input.
func toFloat(raw interface{}) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			f = float64(n)
			break
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
