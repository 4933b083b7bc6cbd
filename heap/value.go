// Package heap implements the VM's single-space compacting arena: all
// runtime values live here, addressed by Ptr, and periodic compaction
// rewrites every reachable pointer through an explicit root set supplied
// by the interpreter.
package heap

import "github.com/adtvm/adtvm/bytecode"

// Ptr is an index into the heap's arena. Ptrs are stable between
// compactions; Compact rewrites every root (and nothing else visible to
// callers) in place.
type Ptr int

// Kind discriminates the tagged union of runtime values.
type Kind uint8

const (
	KindInt Kind = iota
	KindStr
	KindModuleFnRef
	KindIntrinsic
	KindVariant
	// KindLambda is reserved for future closures; the spec requires the
	// heap to forward its captures correctly but no opcode in this VM
	// produces one.
	KindLambda
	// KindForward only ever appears transiently in the old arena during
	// compaction; it must never be visible to code outside this package.
	KindForward
)

// Value is one heap cell. Like wazero's interpreterOp, this is a single
// struct shaped as a union: which fields are meaningful depends on Kind.
type Value struct {
	Kind Kind

	Int int64  // KindInt
	Str string // KindStr

	Fn        bytecode.FunctionIndex // KindModuleFnRef, KindLambda
	Intrinsic string                 // KindIntrinsic
	Ctor      bytecode.ConstructorIndex // KindVariant

	// Fields holds a Variant's field pointers (in constructor field order)
	// or a Lambda's captured pointers.
	Fields []Ptr

	// Forward is the new-arena index this cell has been rewritten to. Only
	// meaningful when Kind == KindForward.
	Forward Ptr
}
