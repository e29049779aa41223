// Package target describes execution targets and validates lowered IR
// against them. A Descriptor is immutable for the duration of a compilation
// unit; concurrent reads need no locking.
package target

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects the execution mode of a target.
type Kind uint8

const (
	// HostExecution compiles for the machine running the compiler; the
	// fast-iteration path.
	HostExecution Kind = iota

	// EmbeddedISA compiles object code for a 32-bit RISC-style
	// controller, flashed into a fixture.
	EmbeddedISA
)

func (k Kind) String() string {
	switch k {
	case HostExecution:
		return "host"
	case EmbeddedISA:
		return "embedded"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Extension is an optional instruction-set capability.
type Extension uint8

const (
	ExtMulDiv Extension = 1 << iota
	ExtAtomics
	ExtCompressed
	ExtFloat
	ExtDoubleFloat
)

var extNames = map[Extension]string{
	ExtMulDiv:      "muldiv",
	ExtAtomics:     "atomics",
	ExtCompressed:  "compressed",
	ExtFloat:       "float",
	ExtDoubleFloat: "double",
}

func (e Extension) String() string {
	if name, ok := extNames[e]; ok {
		return name
	}
	return fmt.Sprintf("extension(%#x)", uint8(e))
}

// ParseExtension resolves a config-file extension name.
func ParseExtension(name string) (Extension, error) {
	for ext, n := range extNames {
		if n == name {
			return ext, nil
		}
	}
	return 0, fmt.Errorf("target: unknown extension %q", name)
}

// ExtensionSet is a bitmask of enabled extensions.
type ExtensionSet uint8

// Has reports whether every extension in e is enabled.
func (s ExtensionSet) Has(e Extension) bool {
	return s&ExtensionSet(e) == ExtensionSet(e)
}

// With returns s with e enabled.
func (s ExtensionSet) With(e Extension) ExtensionSet {
	return s | ExtensionSet(e)
}

// Names lists the enabled extensions in declaration order.
func (s ExtensionSet) Names() []string {
	order := []Extension{ExtMulDiv, ExtAtomics, ExtCompressed, ExtFloat, ExtDoubleFloat}
	var names []string
	for _, e := range order {
		if s.Has(e) {
			names = append(names, e.String())
		}
	}
	return names
}

func (s ExtensionSet) String() string {
	names := s.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// Descriptor describes one execution target. Built once per compilation
// unit and never mutated.
type Descriptor struct {
	Kind                Kind
	Extensions          ExtensionSet
	PositionIndependent bool
}

// Host returns the descriptor for fast-iteration host execution. The host
// always has hardware multiply/divide.
func Host() Descriptor {
	return Descriptor{Kind: HostExecution, Extensions: ExtensionSet(ExtMulDiv)}
}

// Embedded returns a base descriptor for the 32-bit controller ISA with
// the given extensions. Embedded images are position independent so one
// build can load at any flash offset.
func Embedded(exts ...Extension) Descriptor {
	d := Descriptor{Kind: EmbeddedISA, PositionIndependent: true}
	for _, e := range exts {
		d.Extensions = d.Extensions.With(e)
	}
	return d
}

// InlineMultiply reports whether the transform may lower Multiply inline
// via a native high/low product pair instead of a registry call. This is a
// target capability, not a correctness choice: only hosted targets carry
// the 64-bit temporaries the inline sequence needs.
func (d Descriptor) InlineMultiply() bool {
	return d.Kind == HostExecution && d.Extensions.Has(ExtMulDiv)
}

func (d Descriptor) String() string {
	pic := ""
	if d.PositionIndependent {
		pic = " pic"
	}
	return fmt.Sprintf("%s[%s]%s", d.Kind, d.Extensions, pic)
}

// descriptorYAML is the on-disk form.
type descriptorYAML struct {
	Kind                string   `yaml:"kind"`
	Extensions          []string `yaml:"extensions"`
	PositionIndependent bool     `yaml:"position_independent"`
}

// ParseDescriptor decodes a YAML target description.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var raw descriptorYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Descriptor{}, fmt.Errorf("target: parse descriptor: %w", err)
	}

	var d Descriptor
	switch raw.Kind {
	case "host":
		d.Kind = HostExecution
	case "embedded":
		d.Kind = EmbeddedISA
	default:
		return Descriptor{}, fmt.Errorf("target: unknown kind %q", raw.Kind)
	}
	for _, name := range raw.Extensions {
		ext, err := ParseExtension(name)
		if err != nil {
			return Descriptor{}, err
		}
		d.Extensions = d.Extensions.With(ext)
	}
	d.PositionIndependent = raw.PositionIndependent
	return d, nil
}

// LoadDescriptor reads and decodes a YAML target description file.
func LoadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("target: read descriptor: %w", err)
	}
	return ParseDescriptor(data)
}

// MarshalYAML renders d back into the on-disk form.
func (d Descriptor) MarshalYAML() (any, error) {
	return descriptorYAML{
		Kind:                d.Kind.String(),
		Extensions:          d.Extensions.Names(),
		PositionIndependent: d.PositionIndependent,
	}, nil
}
