package script

import (
	"html"
	"strings"

	"github.com/neurodesk/hypermark/pkg/node"
)

const (
	OpenDelim  = "{{"
	CloseDelim = "}}"
)

// HasInterpolation reports whether text contains a closed {{ }} span.
func HasInterpolation(text string) bool {
	i := strings.Index(text, OpenDelim)
	return i >= 0 && strings.Contains(text[i+len(OpenDelim):], CloseDelim)
}

// Interpolate replaces every {{ expr }} span in text by the HTML-escaped
// string form of its value. None renders as the empty string. An opening
// delimiter without a closer is kept verbatim.
func Interpolate(ev Evaluator, text, label string, bindings node.Context) (string, error) {
	var sb strings.Builder
	for {
		i := strings.Index(text, OpenDelim)
		if i < 0 {
			break
		}
		j := strings.Index(text[i+len(OpenDelim):], CloseDelim)
		if j < 0 {
			break
		}
		sb.WriteString(text[:i])
		expr := text[i+len(OpenDelim) : i+len(OpenDelim)+j]
		v, _, err := ev.Eval(expr, label, bindings)
		if err != nil {
			return "", err
		}
		sb.WriteString(html.EscapeString(Stringify(v)))
		text = text[i+len(OpenDelim)+j+len(CloseDelim):]
	}
	sb.WriteString(text)
	return sb.String(), nil
}

// SoleExpression returns the expression of text when text consists of a
// single {{ }} span and nothing else.
func SoleExpression(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, OpenDelim) || !strings.HasSuffix(t, CloseDelim) {
		return "", false
	}
	inner := t[len(OpenDelim) : len(t)-len(CloseDelim)]
	if strings.Contains(inner, OpenDelim) || strings.Contains(inner, CloseDelim) {
		return "", false
	}
	return inner, true
}

// Stringify is the text form of a value in markup: None is empty.
func Stringify(v node.Value) string {
	if _, ok := v.(node.NoneValue); ok || v == nil {
		return ""
	}
	return v.String()
}
