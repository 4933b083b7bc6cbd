package linker

import (
	"fmt"

	"github.com/adtvm/adtvm/bytecode"
	"github.com/adtvm/adtvm/internal/vmerr"
	"github.com/adtvm/adtvm/rawmodule"
)

// resolveFunction rewrites one function's raw instructions into resolved
// bytecode.Op values, per spec.md §4.1 step 4.
func resolveFunction(curModule bytecode.ModuleIndex, m *rawmodule.Module, raw []rawmodule.Instruction, ctx *Context) ([]bytecode.Op, error) {
	out := make([]bytecode.Op, len(raw))
	for i, instr := range raw {
		op, err := resolveOne(curModule, m, instr, ctx)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out[i] = op
	}
	return out, nil
}

func resolveOne(curModule bytecode.ModuleIndex, m *rawmodule.Module, instr rawmodule.Instruction, ctx *Context) (bytecode.Op, error) {
	switch ins := instr.(type) {
	case rawmodule.PushInt:
		return bytecode.Op{Kind: bytecode.OpPushInt, Int: ins.N}, nil

	case rawmodule.PushString:
		return bytecode.Op{Kind: bytecode.OpPushString, Str: bytecode.StringTableIndex{Module: curModule, Index: ins.Index}}, nil

	case rawmodule.LoadLocal:
		return bytecode.Op{Kind: bytecode.OpLoadLocal, Index: ins.Index}, nil

	case rawmodule.StoreLocal:
		return bytecode.Op{Kind: bytecode.OpStoreLocal, Index: ins.Index}, nil

	case rawmodule.LoadReg:
		return bytecode.Op{Kind: bytecode.OpLoadReg, Index: ins.Index}, nil

	case rawmodule.StoreReg:
		return bytecode.Op{Kind: bytecode.OpStoreReg, Index: ins.Index}, nil

	case rawmodule.Jump:
		return bytecode.Op{Kind: bytecode.OpJump, Index: ins.Target}, nil

	case rawmodule.Unless:
		return bytecode.Op{Kind: bytecode.OpUnless, Index: ins.Target}, nil

	case rawmodule.Call:
		return bytecode.Op{Kind: bytecode.OpCall, Index: ins.Argc}, nil

	case rawmodule.LoadName:
		if ins.Module.IsPrelude() {
			if !bytecode.Intrinsics[ins.Func] {
				return bytecode.Op{}, fmt.Errorf("%w: %s", vmerr.ErrUnknownIntrinsic, ins.Func)
			}
			return bytecode.Op{Kind: bytecode.OpLoadIntrinsic, Intrinsic: ins.Func}, nil
		}
		modIdx, ok := ctx.ModuleCalled(ins.Module)
		if !ok {
			return bytecode.Op{}, fmt.Errorf("%w: %s", vmerr.ErrUnresolvedModule, ins.Module.String())
		}
		fnIdx, ok := ctx.ModuleFnCalled(modIdx, ins.Func)
		if !ok {
			return bytecode.Op{}, fmt.Errorf("%w: %s", vmerr.ErrUnresolvedFunc, rawmodule.QualifiedFunctionName(ins.Module, ins.Func))
		}
		return bytecode.Op{Kind: bytecode.OpLoadName, Fn: fnIdx}, nil

	case rawmodule.LoadGlobal:
		fnIdx, ok := ctx.ModuleFnCalled(curModule, ins.Func)
		if !ok {
			return bytecode.Op{}, fmt.Errorf("%w: %s", vmerr.ErrUnresolvedFunc, rawmodule.QualifiedFunctionName(m.Name, ins.Func))
		}
		return bytecode.Op{Kind: bytecode.OpLoadName, Fn: fnIdx}, nil

	case rawmodule.Instantiate:
		ctor, err := ctx.resolveCtor(ins.Module, ins.Datatype, ins.Ctor)
		if err != nil {
			return bytecode.Op{}, err
		}
		return bytecode.Op{Kind: bytecode.OpInstantiate, Ctor: ctor}, nil

	case rawmodule.IsVariant:
		ctor, err := ctx.resolveCtor(ins.Module, ins.Datatype, ins.Ctor)
		if err != nil {
			return bytecode.Op{}, err
		}
		return bytecode.Op{Kind: bytecode.OpIsVariant, Ctor: ctor}, nil

	case rawmodule.Field:
		ctor, err := ctx.resolveCtor(ins.Module, ins.Datatype, ins.Ctor)
		if err != nil {
			return bytecode.Op{}, err
		}
		offset := ctx.ConstructorFieldOffset(ctor, ins.Field)
		if offset < 0 {
			return bytecode.Op{}, fmt.Errorf("%w: %s on %s", vmerr.ErrUnresolvedField, ins.Field, ctx.ConstructorQualifiedName(ctor))
		}
		return bytecode.Op{Kind: bytecode.OpField, Ctor: ctor, Index: offset}, nil

	default:
		return bytecode.Op{}, fmt.Errorf("linker BUG: unhandled raw instruction %T", instr)
	}
}

func (c *Context) resolveCtor(module rawmodule.Name, datatype, ctor string) (bytecode.ConstructorIndex, error) {
	if _, ok := c.ModuleCalled(module); !ok {
		return 0, fmt.Errorf("%w: %s", vmerr.ErrUnresolvedModule, module.String())
	}
	if _, ok := c.adtByKey[adtKey(module, datatype)]; !ok {
		return 0, fmt.Errorf("%w: %s::%s", vmerr.ErrUnresolvedADT, module.String(), datatype)
	}
	cIdx, ok := c.ctorByKey[ctorKey(module, datatype, ctor)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", vmerr.ErrUnresolvedCtor, rawmodule.QualifiedConstructorName(module, datatype, ctor))
	}
	return cIdx, nil
}
