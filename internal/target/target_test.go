package target

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor([]byte(`
kind: embedded
extensions: [muldiv, compressed]
position_independent: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Kind != EmbeddedISA {
		t.Fatalf("kind = %v, want embedded", d.Kind)
	}
	if !d.Extensions.Has(ExtMulDiv) || !d.Extensions.Has(ExtCompressed) {
		t.Fatalf("extensions = %v", d.Extensions)
	}
	if d.Extensions.Has(ExtAtomics) {
		t.Fatalf("atomics should not be enabled")
	}
	if !d.PositionIndependent {
		t.Fatalf("position_independent lost")
	}
}

func TestParseDescriptorErrors(t *testing.T) {
	if _, err := ParseDescriptor([]byte("kind: mainframe\n")); err == nil {
		t.Fatalf("unknown kind accepted")
	}
	if _, err := ParseDescriptor([]byte("kind: host\nextensions: [warp]\n")); err == nil {
		t.Fatalf("unknown extension accepted")
	}
	if _, err := ParseDescriptor([]byte("kind: [not, a, string]\n")); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	want := Embedded(ExtMulDiv, ExtAtomics)
	data, err := yaml.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseDescriptor(data)
	if err != nil {
		t.Fatalf("parse %q: %v", data, err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestExtensionSet(t *testing.T) {
	var s ExtensionSet
	if s.Has(ExtMulDiv) {
		t.Fatalf("empty set has muldiv")
	}
	s = s.With(ExtMulDiv).With(ExtFloat)
	if !s.Has(ExtMulDiv) || !s.Has(ExtFloat) || s.Has(ExtCompressed) {
		t.Fatalf("set = %v", s)
	}
	if got := s.String(); got != "muldiv+float" {
		t.Fatalf("String() = %q", got)
	}
	if got := ExtensionSet(0).String(); got != "none" {
		t.Fatalf("empty String() = %q", got)
	}
}

func TestParseExtensionNames(t *testing.T) {
	for _, ext := range []Extension{ExtMulDiv, ExtAtomics, ExtCompressed, ExtFloat, ExtDoubleFloat} {
		got, err := ParseExtension(ext.String())
		if err != nil {
			t.Fatalf("parse %q: %v", ext, err)
		}
		if got != ext {
			t.Fatalf("parse %q = %v", ext, got)
		}
	}
}

func TestInlineMultiply(t *testing.T) {
	for _, tc := range []struct {
		d    Descriptor
		want bool
	}{
		{Host(), true},
		{Embedded(ExtMulDiv), false},
		{Descriptor{Kind: HostExecution}, false},
	} {
		if got := tc.d.InlineMultiply(); got != tc.want {
			t.Fatalf("%v InlineMultiply = %v, want %v", tc.d, got, tc.want)
		}
	}
}

func TestDescriptorString(t *testing.T) {
	if got := Embedded(ExtMulDiv).String(); !strings.Contains(got, "embedded") || !strings.Contains(got, "pic") {
		t.Fatalf("String() = %q", got)
	}
}
