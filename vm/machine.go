// Package vm is the frame-per-call-site interpreter: it drives a call
// stack of frames over a linker.Program/linker.Context pair until the
// stack empties, dispatching on bytecode.Op.Kind, grounded on wazero's
// internal/engine/interpreter callFrame/callEngine dispatch loop.
package vm

import (
	"context"
	"fmt"
	"io"

	"github.com/adtvm/adtvm/bytecode"
	"github.com/adtvm/adtvm/heap"
	"github.com/adtvm/adtvm/internal/vmdebug"
	"github.com/adtvm/adtvm/internal/vmerr"
	"github.com/adtvm/adtvm/linker"
	"github.com/adtvm/adtvm/rawmodule"
)

// Machine owns one heap and one frame stack over an immutable linked
// Program/Context. Two Machines over the same Program/Context may run
// concurrently in separate goroutines without synchronization: neither
// the Program nor the Context is ever mutated after Link returns.
type Machine struct {
	program *linker.Program
	ctx     *linker.Context
	heap    *heap.Heap
	frames  []*frame

	stdout io.Writer
	stderr io.Writer
}

// NewMachine constructs a Machine ready to run against program/ctx.
func NewMachine(program *linker.Program, ctx *linker.Context, cfg *Config) *Machine {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Machine{
		program: program,
		ctx:     ctx,
		heap:    heap.New(cfg.heapOptions()...),
		stdout:  cfg.stdout,
		stderr:  cfg.stderr,
	}
}

// Run resolves entryModule's MAIN function and drives the interpreter
// loop to completion, per spec.md §4.3: Context.ModuleCalled(entryModule)
// then Context.ModuleFnCalled(that module, "MAIN").
func (m *Machine) Run(ctx context.Context, entryModule rawmodule.Name) error {
	modIdx, ok := m.ctx.ModuleCalled(entryModule)
	if !ok {
		return fmt.Errorf("%w: %s", vmerr.ErrUnresolvedModule, entryModule.String())
	}
	fnIdx, ok := m.ctx.ModuleFnCalled(modIdx, "MAIN")
	if !ok {
		return fmt.Errorf("%w: %s::MAIN", vmerr.ErrUnresolvedFunc, entryModule.String())
	}

	m.frames = append(m.frames, newFrame(fnIdx))
	return m.loop(ctx)
}

func (m *Machine) loop(ctx context.Context) error {
	for len(m.frames) > 0 {
		top := m.frames[len(m.frames)-1]
		fn := m.program.Functions[top.fnIdx]

		if top.ip >= len(fn) {
			if err := m.returnFrame(); err != nil {
				return m.wrapErr(top, err)
			}
			continue
		}

		op := fn[top.ip]
		if err := m.exec(ctx, top, op); err != nil {
			return m.wrapErr(top, err)
		}

		m.heap.Tick(m.rootSet())
	}
	return nil
}

func (m *Machine) wrapErr(f *frame, err error) error {
	return fmt.Errorf("%s: %w", vmdebug.AtIP(m.ctx.FunctionQualifiedName(f.fnIdx), f.ip), err)
}

// returnFrame implements spec.md §4.3's "Return / frame exhaustion":
// pop the exhausted frame; if a caller remains, move at most one value
// (the callee's sole return value, if any) onto its operand stack,
// aborting if more than one value was left; if no caller remains, the
// program ends cleanly only if the popped frame's stack is empty.
func (m *Machine) returnFrame() error {
	n := len(m.frames)
	callee := m.frames[n-1]
	m.frames = m.frames[:n-1]

	if len(m.frames) == 0 {
		if len(callee.stack) != 0 {
			return vmerr.ErrStackNotEmpty
		}
		return nil
	}

	switch len(callee.stack) {
	case 0:
		return nil
	case 1:
		m.frames[len(m.frames)-1].push(callee.stack[0])
		return nil
	default:
		return vmerr.ErrLeakedValues
	}
}

// rootSet gathers every live Ptr slot across all frames, per spec.md
// §4.2: "for every live frame, every pointer in locals, every non-empty
// register slot, and every pointer on the frame's operand stack."
func (m *Machine) rootSet() []*heap.Ptr {
	var roots []*heap.Ptr
	for _, f := range m.frames {
		roots = f.roots(roots)
	}
	return roots
}

func (m *Machine) exec(ctx context.Context, f *frame, op bytecode.Op) error {
	switch op.Kind {
	case bytecode.OpPushInt:
		f.push(m.heap.Alloc(heap.Value{Kind: heap.KindInt, Int: op.Int}))
		f.ip++

	case bytecode.OpPushString:
		f.push(m.heap.Alloc(heap.Value{Kind: heap.KindStr, Str: m.ctx.String(op.Str)}))
		f.ip++

	case bytecode.OpLoadLocal:
		if op.Index >= len(f.locals) {
			return vmerr.ErrUninitializedLocal
		}
		f.push(f.locals[op.Index])
		f.ip++

	case bytecode.OpStoreLocal:
		p, ok := f.pop()
		if !ok {
			return vmerr.ErrStackUnderflow
		}
		switch {
		case op.Index < len(f.locals):
			f.locals[op.Index] = p
		case op.Index == len(f.locals):
			f.locals = append(f.locals, p)
		default:
			return vmerr.ErrOutOfOrderLocalWrite
		}
		f.ip++

	case bytecode.OpLoadReg:
		if op.Index >= len(f.registers) || !f.registers[op.Index].set {
			return vmerr.ErrUninitializedReg
		}
		f.push(f.registers[op.Index].ptr)
		f.ip++

	case bytecode.OpStoreReg:
		p, ok := f.pop()
		if !ok {
			return vmerr.ErrStackUnderflow
		}
		if op.Index >= len(f.registers) {
			grown := make([]regSlot, op.Index+1)
			copy(grown, f.registers)
			f.registers = grown
		}
		f.registers[op.Index] = regSlot{set: true, ptr: p}
		f.ip++

	case bytecode.OpLoadName:
		f.push(m.heap.Alloc(heap.Value{Kind: heap.KindModuleFnRef, Fn: op.Fn}))
		f.ip++

	case bytecode.OpLoadIntrinsic:
		f.push(m.heap.Alloc(heap.Value{Kind: heap.KindIntrinsic, Intrinsic: op.Intrinsic}))
		f.ip++

	case bytecode.OpJump:
		f.ip = op.Index

	case bytecode.OpUnless:
		p, ok := f.pop()
		if !ok {
			return vmerr.ErrStackUnderflow
		}
		v := m.heap.Get(p)
		if v.Kind == heap.KindInt && v.Int == 0 {
			f.ip = op.Index
		} else {
			f.ip++
		}

	case bytecode.OpCall:
		return m.execCall(ctx, f, op.Index)

	case bytecode.OpInstantiate:
		n := m.ctx.ConstructorFieldCount(op.Ctor)
		fields := make([]heap.Ptr, n)
		for i := n - 1; i >= 0; i-- {
			p, ok := f.pop()
			if !ok {
				return vmerr.ErrStackUnderflow
			}
			fields[i] = p
		}
		f.push(m.heap.Alloc(heap.Value{Kind: heap.KindVariant, Ctor: op.Ctor, Fields: fields}))
		f.ip++

	case bytecode.OpIsVariant:
		p, ok := f.pop()
		if !ok {
			return vmerr.ErrStackUnderflow
		}
		v := m.heap.Get(p)
		if v.Kind != heap.KindVariant {
			return vmerr.ErrNotVariant
		}
		result := int64(0)
		if v.Ctor == op.Ctor {
			result = 1
		}
		f.push(m.heap.Alloc(heap.Value{Kind: heap.KindInt, Int: result}))
		f.ip++

	case bytecode.OpField:
		p, ok := f.pop()
		if !ok {
			return vmerr.ErrStackUnderflow
		}
		v := m.heap.Get(p)
		if v.Kind != heap.KindVariant {
			return vmerr.ErrNotVariant
		}
		if v.Ctor != op.Ctor {
			return vmerr.ErrWrongConstructor
		}
		f.push(v.Fields[op.Index])
		f.ip++

	default:
		return fmt.Errorf("vm BUG: unhandled opcode %d", op.Kind)
	}
	return nil
}

// execCall implements spec.md §4.3's Call dispatch.
func (m *Machine) execCall(ctx context.Context, f *frame, argc int) error {
	calleePtr, ok := f.pop()
	if !ok {
		return vmerr.ErrStackUnderflow
	}
	callee := m.heap.Get(calleePtr)

	switch callee.Kind {
	case heap.KindIntrinsic:
		if err := m.execIntrinsic(f, callee.Intrinsic, argc); err != nil {
			return err
		}
		f.ip++
		return nil

	case heap.KindModuleFnRef:
		// Advance the caller's ip before constructing the new frame: the
		// caller's borrow of its own frame must be released first.
		f.ip++

		args := make([]heap.Ptr, argc)
		for i := argc - 1; i >= 0; i-- {
			p, ok := f.pop()
			if !ok {
				return vmerr.ErrStackUnderflow
			}
			args[i] = p
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		nf := newFrame(callee.Fn)
		nf.locals = args
		m.frames = append(m.frames, nf)
		return nil

	default:
		return vmerr.ErrNotCallable
	}
}
