package rawmodule

// Instruction is one raw, unresolved bytecode instruction as produced by the
// compiler. The linker walks these and rewrites them into resolved
// bytecode.Op values carrying direct indices instead of names.
//
// Unlike the resolved bytecode.Op, which is a single struct shaped like
// wazero's interpreterOp, this is one interface with a closed set of
// concrete implementations, switched over at resolution time.
type Instruction interface {
	rawInstruction()
}

type PushInt struct{ N int64 }

type PushString struct{ Index int }

type LoadLocal struct{ Index int }

type StoreLocal struct{ Index int }

type LoadReg struct{ Index int }

type StoreReg struct{ Index int }

// LoadName pushes a reference to a function named by a fully qualified
// module+name pair. When Module is Prelude, the name must resolve to a
// known intrinsic.
type LoadName struct {
	Module Name
	Func   string
}

// LoadGlobal pushes a reference to a function in the current module.
type LoadGlobal struct{ Func string }

type Jump struct{ Target int }

type Unless struct{ Target int }

type Call struct{ Argc int }

// Instantiate, IsVariant and Field all name a constructor by its fully
// qualified (module, datatype, constructor) triple.
type Instantiate struct {
	Module   Name
	Datatype string
	Ctor     string
}

type IsVariant struct {
	Module   Name
	Datatype string
	Ctor     string
}

type Field struct {
	Module   Name
	Datatype string
	Ctor     string
	Field    string
}

func (PushInt) rawInstruction()     {}
func (PushString) rawInstruction()  {}
func (LoadLocal) rawInstruction()   {}
func (StoreLocal) rawInstruction()  {}
func (LoadReg) rawInstruction()     {}
func (StoreReg) rawInstruction()    {}
func (LoadName) rawInstruction()    {}
func (LoadGlobal) rawInstruction()  {}
func (Jump) rawInstruction()        {}
func (Unless) rawInstruction()      {}
func (Call) rawInstruction()        {}
func (Instantiate) rawInstruction() {}
func (IsVariant) rawInstruction()   {}
func (Field) rawInstruction()       {}
