// Package builtin holds the registry binding operation identifiers to
// their implementations. Hosted targets resolve to Local entries, function
// bodies compiled into this image; freestanding targets resolve to
// External entries, fixed symbol names the embedding application must
// supply at link or load time.
package builtin

import (
	"fmt"
	"sort"

	"github.com/luxforge/shadec/internal/fixed"
	"github.com/luxforge/shadec/internal/target"
)

// ID identifies a builtin operation.
type ID uint8

const (
	IDInvalid ID = iota
	IDMul
	IDDiv
	IDFma
	IDSin
	IDCos
	IDTan
	IDExp
	IDLog
	IDSqrt
	IDInvSqrt
	IDPow
	IDAtan
	IDAtan2
	IDSinh
	IDCosh
)

var idNames = [...]string{
	IDMul:     "mul",
	IDDiv:     "div",
	IDFma:     "fma",
	IDSin:     "sin",
	IDCos:     "cos",
	IDTan:     "tan",
	IDExp:     "exp",
	IDLog:     "log",
	IDSqrt:    "sqrt",
	IDInvSqrt: "inversesqrt",
	IDPow:     "pow",
	IDAtan:    "atan",
	IDAtan2:   "atan2",
	IDSinh:    "sinh",
	IDCosh:    "cosh",
}

func (id ID) String() string {
	if int(id) < len(idNames) && idNames[id] != "" {
		return idNames[id]
	}
	return fmt.Sprintf("builtin(%d)", uint8(id))
}

// Fn is the uniform shape of a Local implementation.
type Fn func(args []fixed.Value) fixed.Value

// Implementation is either Local or External.
type Implementation interface {
	implementation()
}

// Local is a function body compiled into the current image; available only
// when the target has a hosted environment.
type Local struct {
	Fn Fn
}

// External records the fixed symbol name the embedding application must
// supply. The calling convention is fixed: pointer to the argument words
// plus their count, no hidden state.
type External struct {
	Symbol string
}

func (Local) implementation()    {}
func (External) implementation() {}

// Entry is one registry row.
type Entry struct {
	ID    ID
	Arity int
	Mode  target.Kind
	Impl  Implementation
}

// UnresolvedBuiltinError reports a registry miss. Lowering fails outright;
// the miss is never deferred to emission.
type UnresolvedBuiltinError struct {
	ID    ID
	Arity int
	Mode  target.Kind
}

func (e *UnresolvedBuiltinError) Error() string {
	return fmt.Sprintf("builtin: no %s implementation of %s/%d", e.Mode, e.ID, e.Arity)
}

type key struct {
	id    ID
	arity int
	mode  target.Kind
}

// Registry is the immutable builtin table. Built once at compiler
// initialization; concurrent lookups need no locking afterward.
type Registry struct {
	entries map[key]Entry
}

// Symbol returns the documented external symbol name for an operation.
// These names are part of the compiler's public surface: a freestanding
// embedding must export each one it uses.
func Symbol(id ID, arity int) string {
	return fmt.Sprintf("shadec_q32_%s%d", id, arity)
}

func unary(fn func(fixed.Value) fixed.Value) Fn {
	return func(args []fixed.Value) fixed.Value { return fn(args[0]) }
}

func binary(fn func(a, b fixed.Value) fixed.Value) Fn {
	return func(args []fixed.Value) fixed.Value { return fn(args[0], args[1]) }
}

type tableRow struct {
	id    ID
	arity int
	local Fn
}

// table is the fixed registration set. One row per operation; host mode
// binds the Local body, embedded mode binds the External symbol.
var table = []tableRow{
	{IDMul, 2, binary(fixed.Mul)},
	{IDDiv, 2, binary(fixed.Div)},
	{IDFma, 3, func(args []fixed.Value) fixed.Value { return fixed.FusedMulAdd(args[0], args[1], args[2]) }},
	{IDSin, 1, unary(fixed.Sin)},
	{IDCos, 1, unary(fixed.Cos)},
	{IDTan, 1, unary(fixed.Tan)},
	{IDExp, 1, unary(fixed.Exp)},
	{IDLog, 1, unary(fixed.Log)},
	{IDSqrt, 1, unary(fixed.Sqrt)},
	{IDInvSqrt, 1, unary(fixed.InvSqrt)},
	{IDPow, 2, binary(fixed.Pow)},
	{IDAtan, 1, unary(fixed.Atan)},
	{IDAtan2, 2, binary(fixed.Atan2)},
	{IDSinh, 1, unary(fixed.Sinh)},
	{IDCosh, 1, unary(fixed.Cosh)},
}

// NewRegistry builds the registry from the fixed table.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[key]Entry, 2*len(table))}
	for _, row := range table {
		r.add(Entry{ID: row.id, Arity: row.arity, Mode: target.HostExecution, Impl: Local{Fn: row.local}})
		r.add(Entry{ID: row.id, Arity: row.arity, Mode: target.EmbeddedISA, Impl: External{Symbol: Symbol(row.id, row.arity)}})
	}
	return r
}

func (r *Registry) add(e Entry) {
	k := key{id: e.ID, arity: e.Arity, mode: e.Mode}
	if _, dup := r.entries[k]; dup {
		panic(fmt.Sprintf("builtin: duplicate entry %s/%d for %s", e.ID, e.Arity, e.Mode))
	}
	r.entries[k] = e
}

// Lookup resolves an operation for the given target mode. Resolution order
// at call sites is: target-native intrinsic (the transform's decision),
// then this registry's Local entry, then External, then failure.
func (r *Registry) Lookup(id ID, arity int, mode target.Kind) (Entry, error) {
	if e, ok := r.entries[key{id: id, arity: arity, mode: mode}]; ok {
		return e, nil
	}
	return Entry{}, &UnresolvedBuiltinError{ID: id, Arity: arity, Mode: mode}
}

// Symbols lists, sorted, every External symbol an embedding must supply
// for the given mode.
func (r *Registry) Symbols(mode target.Kind) []string {
	var syms []string
	for k, e := range r.entries {
		if k.mode != mode {
			continue
		}
		if ext, ok := e.Impl.(External); ok {
			syms = append(syms, ext.Symbol)
		}
	}
	sort.Strings(syms)
	return syms
}
