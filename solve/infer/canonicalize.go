package infer

import (
	"fmt"
	"strings"

	"github.com/cottand/ilesolve/ir"
)

// Quantified is a value under a binder: Value's free variables 0..len(Binders)-1 are
// bound by it
type Quantified[T any] struct {
	Value   T
	Binders []ir.ParameterKind
}

func (q Quantified[T]) String() string {
	binders := make([]string, len(q.Binders))
	for i, pk := range q.Binders {
		binders[i] = pk.String()
	}
	return fmt.Sprintf("exists<%s> %v", strings.Join(binders, ", "), q.Value)
}

// FreeVar records the inference variable a canonical variable stands for
type FreeVar struct {
	Var      ParameterInferenceVariable
	Universe ir.UniverseIndex
}

func (v FreeVar) String() string {
	return fmt.Sprintf("%s in %s", v.Var, v.Universe)
}

// Canonicalized is a value with its inference variables renumbered into a binder.
// FreeVars[i] is the variable bound at position i.
type Canonicalized[T any] struct {
	Quantified  Quantified[T]
	FreeVars    []FreeVar
	MaxUniverse ir.UniverseIndex
}

// Canonicalize replaces every free inference variable of value, after deep
// normalization, by a variable bound at the position of its first occurrence.
// Parameters are visited left to right, and a type before its parameters, so two
// values equal up to renaming of their variables yield the same Quantified.
func Canonicalize[T ir.Foldable[T]](t *InferenceTable, value T) Canonicalized[T] {
	c := &canonicalizer{table: t, maxUniverse: ir.Root}
	canonical := ir.MustFold(value, c, 0)

	binders := make([]ir.ParameterKind, len(c.freeVars))
	for i, fv := range c.freeVars {
		binders[i] = ir.ParameterKind{Kind: fv.Var.Kind, Universe: fv.Universe}
	}
	return Canonicalized[T]{
		Quantified:  Quantified[T]{Value: canonical, Binders: binders},
		FreeVars:    c.freeVars,
		MaxUniverse: c.maxUniverse,
	}
}

type canonicalizer struct {
	table       *InferenceTable
	freeVars    []FreeVar
	maxUniverse ir.UniverseIndex
}

func (c *canonicalizer) add(v ParameterInferenceVariable, ui ir.UniverseIndex) int {
	for i, fv := range c.freeVars {
		if fv.Var == v {
			return i
		}
	}
	c.freeVars = append(c.freeVars, FreeVar{Var: v, Universe: ui})
	c.maxUniverse = max(c.maxUniverse, ui)
	return len(c.freeVars) - 1
}

func (c *canonicalizer) FoldFreeVar(depth, binders int) (ir.Ty, error) {
	v := TyVarFromDepth(depth)
	if value, bound := c.table.ProbeVar(v); bound {
		canonical, err := value.FoldWith(c, 0)
		if err != nil {
			return nil, err
		}
		return ir.UpShift(canonical, binders), nil
	}
	root := c.table.Root(v)
	ui, _ := c.table.UniverseOfUnbound(root)
	i := c.add(ParameterInferenceVariable{Kind: ir.KindTy, Ty: root}, ui)
	return ir.TyVar{Depth: i + binders}, nil
}

func (c *canonicalizer) FoldFreeLifetimeVar(depth, binders int) (ir.Lifetime, error) {
	v := LifetimeVarFromDepth(depth)
	if value, bound := c.table.ProbeLifetimeVar(v); bound {
		canonical, err := value.FoldWith(c, 0)
		if err != nil {
			return nil, err
		}
		return ir.UpShift(canonical, binders), nil
	}
	root := c.table.LifetimeRoot(v)
	ui, _ := c.table.LifetimeUniverseOfUnbound(root)
	i := c.add(ParameterInferenceVariable{Kind: ir.KindLifetime, Lifetime: root}, ui)
	return ir.LifetimeVar{Depth: i + binders}, nil
}
