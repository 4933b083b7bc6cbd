package rawmodule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameEqual(t *testing.T) {
	require.True(t, Name{"Foo", "Bar"}.Equal(Name{"Foo", "Bar"}))
	require.False(t, Name{"Foo", "Bar"}.Equal(Name{"Foo", "Baz"}))
	require.False(t, Name{"Foo"}.Equal(Name{"Foo", "Bar"}))
}

func TestNameIsPrelude(t *testing.T) {
	require.True(t, Name{"Prelude"}.IsPrelude())
	require.False(t, Name{"Foo"}.IsPrelude())
}

func TestNameString(t *testing.T) {
	require.Equal(t, "Foo::Bar", Name{"Foo", "Bar"}.String())
	require.Equal(t, "Main", Name{"Main"}.String())
}

func TestQualifiedFunctionName(t *testing.T) {
	require.Equal(t, "Foo::Bar::baz", QualifiedFunctionName(Name{"Foo", "Bar"}, "baz"))
}

func TestQualifiedConstructorName(t *testing.T) {
	require.Equal(t, "Main::Pair::Pair", QualifiedConstructorName(Name{"Main"}, "Pair", "Pair"))
}

func TestSortedFunctionNames(t *testing.T) {
	m := &Module{Functions: map[string][]Instruction{
		"zeta": nil,
		"alfa": nil,
		"mike": nil,
	}}
	require.Equal(t, []string{"alfa", "mike", "zeta"}, m.SortedFunctionNames())
}

func TestADTByName(t *testing.T) {
	m := &Module{ADTs: []ADT{
		{Name: "Pair", Variants: []Variant{{Name: "Pair", Elements: []string{"fst", "snd"}}}},
	}}
	adt, ok := m.ADTByName("Pair")
	require.True(t, ok)
	require.Equal(t, "Pair", adt.Variants[0].Name)

	_, ok = m.ADTByName("Missing")
	require.False(t, ok)
}
