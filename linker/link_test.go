package linker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adtvm/adtvm/bytecode"
	"github.com/adtvm/adtvm/internal/vmerr"
	"github.com/adtvm/adtvm/rawmodule"
)

func helloWorldModule() *rawmodule.Module {
	return &rawmodule.Module{
		Name:    rawmodule.Name{"Main"},
		Strings: []string{"hello"},
		Functions: map[string][]rawmodule.Instruction{
			"MAIN": {
				rawmodule.PushString{Index: 0},
				rawmodule.LoadName{Module: rawmodule.Prelude, Func: "print"},
				rawmodule.Call{Argc: 1},
			},
		},
	}
}

func TestLink_HelloWorld(t *testing.T) {
	program, ctx, err := Link([]*rawmodule.Module{helloWorldModule()})
	require.NoError(t, err)
	require.Equal(t, 1, ctx.FunctionCount())
	require.Len(t, program.Functions, 1)

	fn := program.Functions[0]
	require.Equal(t, bytecode.OpPushString, fn[0].Kind)
	require.Equal(t, bytecode.OpLoadIntrinsic, fn[1].Kind)
	require.Equal(t, "print", fn[1].Intrinsic)
	require.Equal(t, bytecode.OpCall, fn[2].Kind)
	require.Equal(t, 1, fn[2].Index)
}

func TestLink_MissingDependency(t *testing.T) {
	a := &rawmodule.Module{
		Name:         rawmodule.Name{"A"},
		Dependencies: []rawmodule.Name{{"B"}},
		Functions:    map[string][]rawmodule.Instruction{"MAIN": nil},
	}
	_, _, err := Link([]*rawmodule.Module{a})
	require.ErrorIs(t, err, vmerr.ErrMissingDependency)
}

func TestLink_ExtraModule(t *testing.T) {
	// A is the entrypoint (modules[0]) and is exempt from the "depended on
	// by someone" rule; B is a second, undepended-on module and is not.
	a := &rawmodule.Module{Name: rawmodule.Name{"A"}, Functions: map[string][]rawmodule.Instruction{"MAIN": nil}}
	b := &rawmodule.Module{Name: rawmodule.Name{"B"}, Functions: map[string][]rawmodule.Instruction{"MAIN": nil}}
	_, _, err := Link([]*rawmodule.Module{a, b})
	require.ErrorIs(t, err, vmerr.ErrExtraModule)
}

func TestLink_SingleModuleEntrypointIsNotExtra(t *testing.T) {
	a := &rawmodule.Module{Name: rawmodule.Name{"A"}, Functions: map[string][]rawmodule.Instruction{"MAIN": nil}}
	_, _, err := Link([]*rawmodule.Module{a})
	require.NoError(t, err)
}

func TestLink_DuplicateModule(t *testing.T) {
	a := &rawmodule.Module{Name: rawmodule.Name{"A"}}
	a2 := &rawmodule.Module{Name: rawmodule.Name{"A"}}
	_, _, err := Link([]*rawmodule.Module{a, a2})
	require.ErrorIs(t, err, vmerr.ErrDuplicateModule)
}

func TestLink_UnknownIntrinsic(t *testing.T) {
	m := &rawmodule.Module{
		Name: rawmodule.Name{"Main"},
		Functions: map[string][]rawmodule.Instruction{
			"MAIN": {rawmodule.LoadName{Module: rawmodule.Prelude, Func: "frobnicate"}},
		},
	}
	_, _, err := Link([]*rawmodule.Module{m})
	require.ErrorIs(t, err, vmerr.ErrUnknownIntrinsic)
}

func TestLink_UnsortedElements(t *testing.T) {
	m := &rawmodule.Module{
		Name: rawmodule.Name{"Main"},
		ADTs: []rawmodule.ADT{
			{Name: "Pair", Variants: []rawmodule.Variant{{Name: "Pair", Elements: []string{"snd", "fst"}}}},
		},
		Functions: map[string][]rawmodule.Instruction{"MAIN": nil},
	}
	_, _, err := Link([]*rawmodule.Module{m})
	require.ErrorIs(t, err, vmerr.ErrUnsortedElements)
}

func TestLink_ADTAgreement_FieldMismatch(t *testing.T) {
	provider := &rawmodule.Module{
		Name: rawmodule.Name{"B"},
		ADTs: []rawmodule.ADT{
			{Name: "Pair", Variants: []rawmodule.Variant{{Name: "Pair", Elements: []string{"fst", "snd"}}}},
		},
		Functions: map[string][]rawmodule.Instruction{"MAIN": nil},
	}
	consumer := &rawmodule.Module{
		Name:         rawmodule.Name{"A"},
		Dependencies: []rawmodule.Name{{"B"}},
		ExpectedADTs: []rawmodule.ExpectedADT{
			{
				Module: rawmodule.Name{"B"}, Name: "Pair",
				Variants: []rawmodule.Variant{{Name: "Pair", Elements: []string{"fst", "third"}}},
			},
		},
		Functions: map[string][]rawmodule.Instruction{"MAIN": nil},
	}
	_, _, err := Link([]*rawmodule.Module{consumer, provider})
	require.ErrorIs(t, err, vmerr.ErrADTDisagreement)
}

func TestLink_ADTAgreement_Matches(t *testing.T) {
	provider := &rawmodule.Module{
		Name: rawmodule.Name{"B"},
		ADTs: []rawmodule.ADT{
			{Name: "Pair", Variants: []rawmodule.Variant{{Name: "Pair", Elements: []string{"fst", "snd"}}}},
		},
		Functions: map[string][]rawmodule.Instruction{"MAIN": nil},
	}
	consumer := &rawmodule.Module{
		Name:         rawmodule.Name{"A"},
		Dependencies: []rawmodule.Name{{"B"}},
		ExpectedADTs: []rawmodule.ExpectedADT{
			{
				Module: rawmodule.Name{"B"}, Name: "Pair",
				Variants: []rawmodule.Variant{{Name: "Pair", Elements: []string{"fst", "snd"}}},
			},
		},
		Functions: map[string][]rawmodule.Instruction{"MAIN": nil},
	}
	_, _, err := Link([]*rawmodule.Module{consumer, provider})
	require.NoError(t, err)
}

// TestLink_IndexDensity covers spec.md §8's index-density invariant:
// assigned indices for each entity kind form {0, ..., N-1} exactly.
func TestLink_IndexDensity(t *testing.T) {
	a := &rawmodule.Module{
		Name:         rawmodule.Name{"A"},
		Dependencies: []rawmodule.Name{{"B"}},
		ADTs: []rawmodule.ADT{
			{Name: "T1", Variants: []rawmodule.Variant{{Name: "V1"}, {Name: "V2", Elements: []string{"x"}}}},
		},
		Functions: map[string][]rawmodule.Instruction{"f1": nil, "f2": nil},
	}
	b := &rawmodule.Module{
		Name: rawmodule.Name{"B"},
		ADTs: []rawmodule.ADT{
			{Name: "T2", Variants: []rawmodule.Variant{{Name: "V3"}}},
		},
		Functions: map[string][]rawmodule.Instruction{"g1": nil},
	}
	_, ctx, err := Link([]*rawmodule.Module{a, b})
	require.NoError(t, err)
	require.Equal(t, 3, ctx.FunctionCount())

	for i := 0; i < ctx.FunctionCount(); i++ {
		require.NotEmpty(t, ctx.FunctionQualifiedName(bytecode.FunctionIndex(i)))
	}
	// Constructor field counts are addressable for every assigned index.
	for ci := bytecode.ConstructorIndex(0); ci < 3; ci++ {
		require.GreaterOrEqual(t, ctx.ConstructorFieldCount(ci), 0)
	}
}

// TestLink_Determinism covers spec.md §8's determinism invariant: linking
// the same modules in the same order twice produces identical resolved
// bytecode and the same qualified name at FunctionIndex 0.
func TestLink_Determinism(t *testing.T) {
	modules := func() []*rawmodule.Module {
		return []*rawmodule.Module{helloWorldModule()}
	}
	p1, ctx1, err := Link(modules())
	require.NoError(t, err)
	p2, ctx2, err := Link(modules())
	require.NoError(t, err)

	require.Equal(t, p1.Functions, p2.Functions)
	require.Equal(t, ctx1.FunctionQualifiedName(0), ctx2.FunctionQualifiedName(0))
}

func TestLink_FunctionOrderingLexicographic(t *testing.T) {
	m := &rawmodule.Module{
		Name: rawmodule.Name{"Main"},
		Functions: map[string][]rawmodule.Instruction{
			"zeta": nil, "alfa": nil, "mike": nil,
		},
	}
	_, ctx, err := Link([]*rawmodule.Module{m})
	require.NoError(t, err)
	require.Equal(t, "Main::alfa", ctx.FunctionQualifiedName(0))
	require.Equal(t, "Main::mike", ctx.FunctionQualifiedName(1))
	require.Equal(t, "Main::zeta", ctx.FunctionQualifiedName(2))
}

func TestLink_LoadGlobalResolvesWithinCurrentModule(t *testing.T) {
	m := &rawmodule.Module{
		Name: rawmodule.Name{"Main"},
		Functions: map[string][]rawmodule.Instruction{
			"MAIN": {rawmodule.LoadGlobal{Func: "helper"}},
			"helper": {rawmodule.PushInt{N: 1}},
		},
	}
	program, ctx, err := Link([]*rawmodule.Module{m})
	require.NoError(t, err)
	mainIdx, _ := ctx.ModuleFnCalled(0, "MAIN")
	helperIdx, _ := ctx.ModuleFnCalled(0, "helper")
	require.Equal(t, bytecode.OpLoadName, program.Functions[mainIdx][0].Kind)
	require.Equal(t, helperIdx, program.Functions[mainIdx][0].Fn)
}

func TestLink_FieldOffsetResolution(t *testing.T) {
	m := &rawmodule.Module{
		Name: rawmodule.Name{"Main"},
		ADTs: []rawmodule.ADT{
			{Name: "Pair", Variants: []rawmodule.Variant{{Name: "Pair", Elements: []string{"fst", "snd"}}}},
		},
		Functions: map[string][]rawmodule.Instruction{
			"MAIN": {
				rawmodule.Field{Module: rawmodule.Name{"Main"}, Datatype: "Pair", Ctor: "Pair", Field: "snd"},
			},
		},
	}
	program, _, err := Link([]*rawmodule.Module{m})
	require.NoError(t, err)
	require.Equal(t, 1, program.Functions[0][0].Index)
}
