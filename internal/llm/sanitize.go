package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StripFences removes a surrounding markdown code fence from a model
// response. Models frequently wrap JSON in ```json ... ``` despite being
// told not to.
func StripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return []byte(strings.TrimSpace(s))
}

// Defaults applied when the model omits a field or returns junk. A gap record
// is always complete: amounts are never null, strings never missing.
const (
	DefaultGapTitle       = "No accounting discrepancy found"
	DefaultGapDescription = "No accounting discrepancy or financial impact found."
	DefaultGapItem        = "N/A"
	DefaultParticipants   = "Unknown"
	DefaultAlarmSummary   = "No analysis available."
	ZeroAmount            = "0.00"
)

// NormalizeGapJSON coerces a raw discrepancy response into the gap schema:
// string fields default rather than go null, amount_increase is coerced to a
// non-negative two-decimal string ("0.00" on any parse failure), and unknown
// keys are removed. Returns the cleaned JSON and the list of corrections.
func NormalizeGapJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(StripFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var fixed []string
	coerceString(m, "title", DefaultGapTitle, &fixed)
	coerceString(m, "description", DefaultGapDescription, &fixed)
	coerceString(m, "item", DefaultGapItem, &fixed)
	coerceString(m, "participants", DefaultParticipants, &fixed)

	amount, note := coerceAmount(m["amount_increase"])
	m["amount_increase"] = amount
	if note != "" {
		fixed = append(fixed, "amount_increase("+note+")")
	}

	dropUnknown(m, []string{"title", "description", "item", "participants", "amount_increase"}, &fixed)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fixed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, fixed, nil
}

// NormalizeAlarmJSON coerces a raw compliance response into the alarm schema.
// date_time is the one nullable field: "Unknown", empty, or non-string values
// all become null.
func NormalizeAlarmJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(StripFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var fixed []string
	coerceString(m, "summary", DefaultAlarmSummary, &fixed)
	coerceNullableDate(m, "date_time", &fixed)
	dropUnknown(m, []string{"date_time", "summary"}, &fixed)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fixed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, fixed, nil
}

// NormalizeReferencesJSON coerces a raw missing-attachment response into the
// references schema. It accepts the legacy shape {"message_date": ...,
// "missing_attachments": ["a.pdf", ...]} and rewrites it, drops entries whose
// attachment name has no dotted extension, and nulls unknown dates. An empty
// references list is a valid result, not an error.
func NormalizeReferencesJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(StripFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var fixed []string

	// Legacy shape: flat list of names plus one shared date.
	if _, ok := m["references"]; !ok {
		if names, ok := m["missing_attachments"].([]any); ok {
			date := m["message_date"]
			refs := make([]any, 0, len(names))
			for _, n := range names {
				refs = append(refs, map[string]any{"attachment_name": n, "message_date": date})
			}
			m = map[string]any{"references": refs}
			fixed = append(fixed, "missing_attachments->references")
		}
	}

	rawRefs, _ := m["references"].([]any)
	if m["references"] != nil && rawRefs == nil {
		// single object instead of a list
		if one, ok := m["references"].(map[string]any); ok {
			rawRefs = []any{one}
			fixed = append(fixed, "references(wrapped)")
		}
	}

	refs := make([]any, 0, len(rawRefs))
	for _, rv := range rawRefs {
		ref, ok := rv.(map[string]any)
		if !ok {
			if s, ok := rv.(string); ok && strings.TrimSpace(s) != "" {
				ref = map[string]any{"attachment_name": s}
				fixed = append(fixed, "reference(string)")
			} else {
				fixed = append(fixed, "reference(type)")
				continue
			}
		}
		name, _ := ref["attachment_name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			fixed = append(fixed, "attachment_name(empty)")
			continue
		}
		// require a real filename: dotted extension, not just a description
		if !hasExtension(name) {
			fixed = append(fixed, "attachment_name(no-extension:"+name+")")
			continue
		}
		entry := map[string]any{"attachment_name": name}
		if d, ok := ref["message_date"]; ok {
			entry["message_date"] = d
		}
		coerceNullableDate(entry, "message_date", &fixed)
		refs = append(refs, entry)
	}

	out, err := json.Marshal(map[string]any{"references": refs})
	if err != nil {
		return nil, fixed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, fixed, nil
}

func coerceString(m map[string]any, key, def string, fixed *[]string) {
	v, ok := m[key]
	if !ok || v == nil {
		m[key] = def
		*fixed = append(*fixed, key+"(defaulted)")
		return
	}
	s, ok := v.(string)
	if !ok {
		m[key] = fmt.Sprintf("%v", v)
		*fixed = append(*fixed, key+"(type)")
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		m[key] = def
		*fixed = append(*fixed, key+"(empty)")
		return
	}
	m[key] = s
}

// coerceAmount turns whatever the model returned into a non-negative
// two-decimal string. Anything unparseable or negative becomes "0.00"; the
// returned note is empty only when the value passed through untouched.
func coerceAmount(v any) (string, string) {
	switch t := v.(type) {
	case nil:
		return ZeroAmount, "null"
	case float64:
		d := decimal.NewFromFloat(t)
		if d.IsNegative() {
			return ZeroAmount, "negative"
		}
		return d.StringFixed(2), "number"
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return ZeroAmount, "empty"
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return ZeroAmount, "unparseable"
		}
		if d.IsNegative() {
			return ZeroAmount, "negative"
		}
		out := d.StringFixed(2)
		if out != t {
			return out, "reformatted"
		}
		return out, ""
	default:
		return ZeroAmount, "type"
	}
}

func coerceNullableDate(m map[string]any, key string, fixed *[]string) {
	v, ok := m[key]
	if !ok {
		m[key] = nil
		return
	}
	s, isStr := v.(string)
	if !isStr {
		if v != nil {
			m[key] = nil
			*fixed = append(*fixed, key+"(type)")
		}
		return
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") || strings.EqualFold(s, "null") {
		m[key] = nil
		*fixed = append(*fixed, key+"(null)")
		return
	}
	m[key] = s
}

func dropUnknown(m map[string]any, allowed []string, fixed *[]string) {
	set := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		set[k] = struct{}{}
	}
	for k := range m {
		if _, ok := set[k]; !ok {
			delete(m, k)
			*fixed = append(*fixed, k+"(unknown)")
		}
	}
}

func hasExtension(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return false
	}
	ext := name[i+1:]
	if len(ext) > 5 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
