package infer

import "github.com/cottand/ilesolve/ir"

// Instantiate opens the binder of value with a fresh inference variable per position,
// of the kind and in the universe binders gives for it.
// It returns the opened value and the substitution it applied.
func Instantiate[T ir.Foldable[T]](t *InferenceTable, binders []ir.ParameterKind, value T) (T, Substitution) {
	params := make([]ir.Parameter, len(binders))
	for i, pk := range binders {
		params[i] = t.NewParameterVariable(pk).ToParameter()
	}
	return ir.Subst(params, value), SubstitutionFromParameters(params)
}

// InstantiateIn is Instantiate with every variable created in universe ui
func InstantiateIn[T ir.Foldable[T]](t *InferenceTable, ui ir.UniverseIndex, kinds []ir.Kind, value T) (T, Substitution) {
	binders := make([]ir.ParameterKind, len(kinds))
	for i, k := range kinds {
		binders[i] = ir.ParameterKind{Kind: k, Universe: ui}
	}
	return Instantiate(t, binders, value)
}

// InstantiateCanonical opens a canonical value, typically a cached query or answer,
// in t
func InstantiateCanonical[T ir.Foldable[T]](t *InferenceTable, q Quantified[T]) (T, Substitution) {
	return Instantiate(t, q.Binders, q.Value)
}
