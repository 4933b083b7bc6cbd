// Package rawmodule holds the deserialized representation of one bytecode
// module, as produced by an external compiler and consumed by the linker.
package rawmodule

import (
	"sort"
	"strings"
)

// Name is an ordered sequence of path segments, e.g. []string{"Foo", "Bar"}.
// Equality is segment-wise; two modules sharing a Name in one program link
// is illegal.
type Name []string

// Prelude is the well-known pseudo-module that supplies intrinsics. It is
// never one of the modules actually supplied to the linker.
var Prelude = Name{"Prelude"}

// Equal reports whether n and other name the same module.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// IsPrelude reports whether n is the Prelude pseudo-module.
func (n Name) IsPrelude() bool {
	return n.Equal(Prelude)
}

// String renders the module name the way qualified names are rendered
// throughout diagnostics: segments joined with "::".
func (n Name) String() string {
	return strings.Join(n, "::")
}

// QualifiedFunctionName renders "seg1::seg2::...::fn".
func QualifiedFunctionName(module Name, fn string) string {
	return module.String() + "::" + fn
}

// QualifiedConstructorName renders "seg1::...::Datatype::Ctor".
func QualifiedConstructorName(module Name, datatype, ctor string) string {
	return module.String() + "::" + datatype + "::" + ctor
}

// Variant is one alternative of an ADT: a name and a sorted sequence of
// field names. Sortedness is a producer-side invariant; the linker
// re-checks it defensively rather than trusting the input.
type Variant struct {
	Name     string
	Elements []string
}

// ADT is one datatype declaration: an ordered sequence of variants. Order
// here is declaration order as read off the wire/text format, and is what
// the linker uses to assign ConstructorIndex values within the datatype.
type ADT struct {
	Name     string
	Variants []Variant
}

// ExpectedADT is a module's declaration that another module exports a
// datatype with exactly these variants and field names. It lets separately
// compiled modules agree on constructor indices and field offsets without
// a shared build.
type ExpectedADT struct {
	Module   Name
	Name     string
	Variants []Variant
}

// Module is one independently produced bytecode module.
type Module struct {
	Name Name

	// Strings is this module's string literal table, indexed by PushString's
	// operand.
	Strings []string

	// Functions maps function name to its raw instruction sequence. Iteration
	// order is not significant: the linker always re-sorts by name before
	// assigning FunctionIndex values.
	Functions map[string][]Instruction

	// Dependencies are the modules this module imports from, excluding the
	// implicit Prelude.
	Dependencies []Name

	// ADTs are this module's own datatype declarations, in declaration order.
	ADTs []ADT

	// ExpectedADTs are this module's beliefs about other modules' datatypes.
	ExpectedADTs []ExpectedADT
}

// ADTByName looks up one of this module's own datatype declarations by name.
func (m *Module) ADTByName(name string) (ADT, bool) {
	for _, a := range m.ADTs {
		if a.Name == name {
			return a, true
		}
	}
	return ADT{}, false
}

// SortedFunctionNames returns this module's function names in the order the
// linker assigns FunctionIndex values: lexicographic.
func (m *Module) SortedFunctionNames() []string {
	names := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
