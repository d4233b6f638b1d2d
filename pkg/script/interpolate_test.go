package script

import (
	"testing"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
)

func TestInterpolate(t *testing.T) {
	ev := NewStarlark()
	ctx := node.Context{"name": node.StringValue("<Ann>"), "n": node.IntValue(2)}
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"Hi {{ name }}!", "Hi &lt;Ann&gt;!"},
		{"{{n}} + {{ n * 2 }}", "2 + 4"},
		{"{{ None }}", ""},
		{"open {{ only", "open {{ only"},
	}
	for _, tt := range tests {
		got, err := Interpolate(ev, tt.in, "text", ctx)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := Interpolate(ev, "{{ nope }}", "text", ctx); !diag.IsKind(err, diag.KindScript) {
		t.Fatalf("expected script error, got %v", err)
	}
}

func TestSoleExpression(t *testing.T) {
	if e, ok := SoleExpression("  {{ children }} "); !ok || e != " children " {
		t.Fatalf("got %q %v", e, ok)
	}
	for _, s := range []string{"a {{ b }}", "{{ a }} {{ b }}", "{{ a"} {
		if _, ok := SoleExpression(s); ok {
			t.Errorf("%q accepted", s)
		}
	}
}
