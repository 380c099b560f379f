package infer

import (
	"testing"

	"github.com/cottand/ilesolve/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableWith returns a table holding tys type variables and lifetimes lifetime
// variables, all in the root universe
func tableWith(tys, lifetimes int) *InferenceTable {
	table := NewInferenceTable()
	for range tys {
		table.NewVariable(ir.Root)
	}
	for range lifetimes {
		table.NewLifetimeVariable(ir.Root)
	}
	return table
}

func normalized(table *InferenceTable, src string) string {
	return DeepNormalize(table, ir.MustParse(src)).String()
}

func TestUnifyBindsVariables(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     string
		expected map[string]string
	}{
		{
			name:     "variable with type",
			a:        "?0",
			b:        "Vec<?1>",
			expected: map[string]string{"?0": "Vec<?1>", "?1": "?1"},
		},
		{
			name:     "type with variable",
			a:        "Option<Int>",
			b:        "?1",
			expected: map[string]string{"?1": "Option<Int>"},
		},
		{
			name:     "both sides bind",
			a:        "Pair<?0, Int>",
			b:        "Pair<Bool, ?1>",
			expected: map[string]string{"?0": "Bool", "?1": "Int"},
		},
		{
			name:     "nested variables",
			a:        "Vec<Pair<?0, ?1>>",
			b:        "Vec<Pair<?1, Int>>",
			expected: map[string]string{"?0": "Int", "?1": "Int"},
		},
		{
			name:     "lifetime parameters",
			a:        "Ref<'?0, ?0>",
			b:        "Ref<'!0.0, Int>",
			expected: map[string]string{"Ref<'?0, ?0>": "Ref<'!0.0, Int>"},
		},
		{
			name:     "higher-ranked type bound to variable",
			a:        "?0",
			b:        "for<1> Fn<'?0, ?2>",
			expected: map[string]string{"?0": "for<1> Fn<'?0, ?2>"},
		},
		{
			name:     "alpha-equivalent higher-ranked types",
			a:        "for<2> Fn<'?0, '?1>",
			b:        "for<2> Fn<'?0, '?1>",
			expected: map[string]string{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table := tableWith(2, 1)
			result, err := table.Unify(ir.MustParse(tc.a), ir.MustParse(tc.b))
			require.NoError(t, err)
			assert.True(t, result.IsTrivial())
			for term, expected := range tc.expected {
				assert.Equal(t, expected, normalized(table, term))
			}
			assert.Equal(t, normalized(table, tc.a), normalized(table, tc.b))
		})
	}
}

func TestUnifyFailures(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     string
		expected FailureKind
	}{
		{name: "different constructors", a: "Vec<Int>", b: "Option<Int>", expected: HeadMismatch},
		{name: "different placeholders", a: "!1.0", b: "!1.1", expected: HeadMismatch},
		{name: "placeholder and constructor", a: "!0.0", b: "Int", expected: HeadMismatch},
		{name: "different arity", a: "Vec<Int>", b: "Vec<Int, Int>", expected: ArityMismatch},
		{name: "different kinds", a: "Ref<'?0>", b: "Ref<?0>", expected: KindMismatch},
		{name: "variable in its own value", a: "?0", b: "Vec<?0>", expected: Cycle},
		{name: "variable deep in its own value", a: "Pair<?0, ?1>", b: "Pair<?1, Vec<Option<?0>>>", expected: Cycle},
		{name: "different placeholder lifetimes", a: "Ref<'!0.0>", b: "Ref<'!0.1>", expected: PlaceholderMismatch},
		{name: "mismatch after binding", a: "Pair<?0, Vec<Int>>", b: "Pair<Int, Option<Int>>", expected: HeadMismatch},
		{name: "higher-ranked against first-order", a: "for<1> Fn<'?0>", b: "Fn<'?0>", expected: UniverseEscape},
		{name: "higher-ranked with fewer binders", a: "for<1> Fn<'?0, '?0>", b: "for<2> Fn<'?0, '?1>", expected: PlaceholderMismatch},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table := tableWith(2, 1)
			_, err := table.Unify(ir.MustParse(tc.a), ir.MustParse(tc.b))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoSolution)
			kind, ok := FailureKindOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.expected, kind)

			// nothing of the failed attempt remains
			for _, v := range table.TyVars() {
				_, bound := table.ProbeVar(v)
				assert.False(t, bound)
			}
			for _, v := range table.LifetimeVars() {
				_, bound := table.ProbeLifetimeVar(v)
				assert.False(t, bound)
			}
			assert.Len(t, table.TyVars(), 2)
			assert.Len(t, table.LifetimeVars(), 1)
			assert.Equal(t, ir.Root, table.MaxUniverse())
		})
	}
}

func TestUnifyVariables(t *testing.T) {
	table := NewInferenceTable()
	a := table.NewVariable(ir.Root)
	u1 := table.NewUniverse()
	b := table.NewVariable(u1)

	_, err := table.Unify(a.ToTy(), b.ToTy())
	require.NoError(t, err)
	assert.Equal(t, table.Root(a), table.Root(b))

	ui, unbound := table.UniverseOfUnbound(b)
	require.True(t, unbound)
	assert.Equal(t, ir.Root, ui)

	_, err = table.Unify(b.ToTy(), ir.MustParse("Int"))
	require.NoError(t, err)
	assert.Equal(t, "Int", DeepNormalize(table, a.ToTy()).String())

	// both bound: their values are unified instead
	_, err = table.Unify(a.ToTy(), b.ToTy())
	assert.NoError(t, err)
}

func TestUnifyLowersUniverses(t *testing.T) {
	table := NewInferenceTable()
	a := table.NewVariable(ir.Root)
	u1 := table.NewUniverse()
	b := table.NewVariable(u1)
	l := table.NewLifetimeVariable(u1)

	_, err := table.Unify(a.ToTy(), ir.ApplyTy{
		Name:       ir.ItemName("Ref"),
		Parameters: ir.Parameters{ir.LifetimeParam(l.ToLifetime()), ir.TyParam(b.ToTy())},
	})
	require.NoError(t, err)

	ui, _ := table.UniverseOfUnbound(b)
	assert.Equal(t, ir.Root, ui)
	ui, _ = table.LifetimeUniverseOfUnbound(l)
	assert.Equal(t, ir.Root, ui)

	_, err = table.Unify(b.ToTy(), ir.ApplyTy{Name: ir.PlaceholderIndex{Universe: u1}})
	kind, _ := FailureKindOf(err)
	assert.Equal(t, UniverseEscape, kind)
	_, err = table.UnifyLifetimes(l.ToLifetime(), ir.PlaceholderLifetime{Placeholder: ir.PlaceholderIndex{Universe: u1}})
	kind, _ = FailureKindOf(err)
	assert.Equal(t, UniverseEscape, kind)
}

func TestUnifyProjections(t *testing.T) {
	table := tableWith(2, 0)

	result, err := table.Unify(ir.MustParse("Iterator::Item<?0>"), ir.MustParse("Int"))
	require.NoError(t, err)
	require.Len(t, result.Goals, 1)
	assert.Equal(t, "Normalize(Iterator::Item<?0> -> Int)", result.Goals[0].String())

	result, err = table.Unify(ir.MustParse("Vec<?1>"), ir.MustParse("Vec<Iterator::Item<?0>>"))
	require.NoError(t, err)
	require.Len(t, result.Goals, 1)
	assert.Equal(t, "Normalize(Iterator::Item<?0> -> ?1)", result.Goals[0].String())

	for _, v := range table.TyVars() {
		_, bound := table.ProbeVar(v)
		assert.False(t, bound)
	}
}

func TestUnifyLifetimes(t *testing.T) {
	table := tableWith(0, 2)
	a, b := table.LifetimeVars()[0], table.LifetimeVars()[1]

	_, err := table.UnifyLifetimes(a.ToLifetime(), b.ToLifetime())
	require.NoError(t, err)
	assert.Equal(t, table.LifetimeRoot(a), table.LifetimeRoot(b))

	placeholder := ir.PlaceholderLifetime{Placeholder: ir.PlaceholderIndex{Idx: 1}}
	_, err = table.UnifyLifetimes(placeholder, a.ToLifetime())
	require.NoError(t, err)
	value, bound := table.ProbeLifetimeVar(b)
	require.True(t, bound)
	assert.Equal(t, placeholder, value)

	_, err = table.UnifyLifetimes(b.ToLifetime(), ir.PlaceholderLifetime{})
	kind, _ := FailureKindOf(err)
	assert.Equal(t, PlaceholderMismatch, kind)
}

func TestUnifyParameters(t *testing.T) {
	table := tableWith(1, 1)

	_, err := table.UnifyParameters(ir.TyParam(ir.TyVar{}), ir.LifetimeParam(ir.LifetimeVar{}))
	kind, _ := FailureKindOf(err)
	assert.Equal(t, KindMismatch, kind)

	_, err = table.UnifyParameters(ir.TyParam(ir.TyVar{}), ir.TyParam(ir.MustParse("Int")))
	require.NoError(t, err)
	assert.Equal(t, "Int", normalized(table, "?0"))
}
