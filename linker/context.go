package linker

import (
	"github.com/adtvm/adtvm/bytecode"
	"github.com/adtvm/adtvm/rawmodule"
)

// Context is the immutable table of resolved names assigned by the linker.
// All of its parallel arrays are keyed by the dense indices defined in
// package bytecode; for a given entity kind every array has the same
// length (checked by Link's final sanity pass).
//
// A Context never changes after Link returns: the linker holds no mutable
// state once it has produced one.
type Context struct {
	moduleNames []rawmodule.Name

	functionModule     []bytecode.ModuleIndex
	functionModuleName []rawmodule.Name
	functionName       []string

	datatypeModule     []bytecode.ModuleIndex
	datatypeModuleName []rawmodule.Name
	datatypeName       []string

	constructorModule       []bytecode.ModuleIndex
	constructorModuleName   []rawmodule.Name
	constructorDatatype     []bytecode.DatatypeIndex
	constructorDatatypeName []string
	constructorName         []string
	constructorFieldNames   [][]string

	// strings is a two-level table: strings[moduleIdx][stringIdx].
	strings [][]string

	moduleByName map[string]bytecode.ModuleIndex
	funcByKey    map[string]bytecode.FunctionIndex
	adtByKey     map[string]bytecode.DatatypeIndex
	ctorByKey    map[string]bytecode.ConstructorIndex
}

func moduleKey(m rawmodule.Name) string { return m.String() }
func funcKey(m rawmodule.Name, fn string) string {
	return m.String() + "\x00" + fn
}
func adtKey(m rawmodule.Name, datatype string) string {
	return m.String() + "\x00" + datatype
}
func ctorKey(m rawmodule.Name, datatype, ctor string) string {
	return m.String() + "\x00" + datatype + "\x00" + ctor
}

// ModuleCount returns the number of linked modules.
func (c *Context) ModuleCount() int { return len(c.moduleNames) }

// FunctionCount returns the number of linked functions.
func (c *Context) FunctionCount() int { return len(c.functionName) }

// ModuleCalled resolves a module name to its dense index.
func (c *Context) ModuleCalled(name rawmodule.Name) (bytecode.ModuleIndex, bool) {
	idx, ok := c.moduleByName[moduleKey(name)]
	return idx, ok
}

// ModuleFnCalled resolves a function by (module index, name) to its dense
// FunctionIndex.
func (c *Context) ModuleFnCalled(module bytecode.ModuleIndex, fn string) (bytecode.FunctionIndex, bool) {
	idx, ok := c.funcByKey[funcKey(c.moduleNames[module], fn)]
	return idx, ok
}

// FunctionQualifiedName renders a FunctionIndex as "seg1::...::fn".
func (c *Context) FunctionQualifiedName(f bytecode.FunctionIndex) string {
	return rawmodule.QualifiedFunctionName(c.functionModuleName[f], c.functionName[f])
}

// ConstructorQualifiedName renders a ConstructorIndex as
// "seg1::...::Datatype::Ctor".
func (c *Context) ConstructorQualifiedName(ci bytecode.ConstructorIndex) string {
	return rawmodule.QualifiedConstructorName(
		c.constructorModuleName[ci],
		c.constructorDatatypeName[ci],
		c.constructorName[ci],
	)
}

// ConstructorFieldCount returns how many fields a constructor's variant
// carries.
func (c *Context) ConstructorFieldCount(ci bytecode.ConstructorIndex) int {
	return len(c.constructorFieldNames[ci])
}

// ConstructorFieldOffset returns the sorted position of fieldName within
// ci's field list, or -1 if ci has no such field.
func (c *Context) ConstructorFieldOffset(ci bytecode.ConstructorIndex, fieldName string) int {
	for i, f := range c.constructorFieldNames[ci] {
		if f == fieldName {
			return i
		}
	}
	return -1
}

// ConstructorDatatype returns the owning datatype of a constructor.
func (c *Context) ConstructorDatatype(ci bytecode.ConstructorIndex) bytecode.DatatypeIndex {
	return c.constructorDatatype[ci]
}

// String looks up a string table entry by its two-level index.
func (c *Context) String(idx bytecode.StringTableIndex) string {
	return c.strings[idx.Module][idx.Index]
}
