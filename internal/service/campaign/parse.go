package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/dzerik/campaign-portal/internal/model"
)

// parseRules extracts {"rules":[...]} (or a bare array) from model output.
// Markdown code fences and prose around the JSON are tolerated.
func parseRules(content string) ([]model.Rule, error) {
	raw := []byte(stripFences(content))

	rules, ok := decodeEnvelope(raw)
	if !ok {
		rules, ok = decodeArray(raw)
	}
	if !ok {
		return nil, fmt.Errorf("%w: model response was not valid JSON", ErrInvalidModelOutput)
	}

	out := make([]model.Rule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Field) == "" {
			continue
		}
		r.LogicGate = strings.ToUpper(strings.TrimSpace(r.LogicGate))
		r.ID = "rule-" + strconv.Itoa(len(out)+1)
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no rules in model response", ErrInvalidModelOutput)
	}
	return out, nil
}

func decodeEnvelope(raw []byte) ([]model.Rule, bool) {
	obj := extract(raw, '{', '}')
	if obj == nil {
		return nil, false
	}
	var envelope struct {
		Rules []model.Rule `json:"rules"`
	}
	if err := json.Unmarshal(obj, &envelope); err != nil || envelope.Rules == nil {
		return nil, false
	}
	return envelope.Rules, true
}

func decodeArray(raw []byte) ([]model.Rule, bool) {
	arr := extract(raw, '[', ']')
	if arr == nil {
		return nil, false
	}
	var rules []model.Rule
	if err := json.Unmarshal(arr, &rules); err != nil {
		return nil, false
	}
	return rules, true
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func extract(b []byte, open, closing byte) []byte {
	start := bytes.IndexByte(b, open)
	end := bytes.LastIndexByte(b, closing)
	if start < 0 || end <= start {
		return nil
	}
	return b[start : end+1]
}

// cleanSubject trims whitespace, a "Subject:" label and wrapping quotes.
func cleanSubject(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 8 && strings.EqualFold(s[:8], "subject:") {
		s = strings.TrimSpace(s[8:])
	}
	for _, q := range []string{`"`, "'", "“"} {
		closing := q
		if q == "“" {
			closing = "”"
		}
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, closing) && len(s) >= len(q)+len(closing) {
			s = strings.TrimSpace(s[len(q) : len(s)-len(closing)])
		}
	}
	return s
}

var blockMarkup = regexp.MustCompile(`(?i)<(p|div|br|ul|ol|li|h[1-6]|table)\b`)

// paragraphs turns plain model text into HTML paragraphs. Text that already
// has block markup is returned unchanged for the sanitizer.
func paragraphs(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if blockMarkup.MatchString(s) {
		return s
	}
	var b strings.Builder
	for _, p := range strings.Split(s, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return strings.TrimSpace(b.String())
}
