package infer

import (
	"fmt"

	"github.com/cottand/ilesolve/ir"
	"github.com/hashicorp/go-set/v3"
)

// UnificationResult carries the obligations unification produced but could not
// discharge itself, to be proven by the caller
type UnificationResult struct {
	Goals []ir.Normalize
}

func (r UnificationResult) IsTrivial() bool {
	return len(r.Goals) == 0
}

// Unify makes a and b equal by binding inference variables.
// On failure, the error matches ErrNoSolution and t is left as it was.
func (t *InferenceTable) Unify(a, b ir.Ty) (UnificationResult, error) {
	return t.unifyWith(func(u *unifier) error { return u.unifyTyTy(a, b) })
}

func (t *InferenceTable) UnifyLifetimes(a, b ir.Lifetime) (UnificationResult, error) {
	return t.unifyWith(func(u *unifier) error { return u.unifyLifetimeLifetime(a, b) })
}

func (t *InferenceTable) UnifyParameters(a, b ir.Parameter) (UnificationResult, error) {
	return t.unifyWith(func(u *unifier) error { return u.unifyParameters(a, b) })
}

func (t *InferenceTable) unifyWith(f func(u *unifier) error) (UnificationResult, error) {
	return CommitIfOK(t, func(t *InferenceTable) (UnificationResult, error) {
		u := &unifier{table: t}
		if err := f(u); err != nil {
			return UnificationResult{}, err
		}
		return UnificationResult{Goals: u.goals}, nil
	})
}

// unifier works on terms under no binders: quantified types are opened before their
// bodies are compared, so every variable it sees is an inference variable
type unifier struct {
	table *InferenceTable
	goals []ir.Normalize
}

func (u *unifier) unifyTyTy(a, b ir.Ty) error {
	if normalized, ok := u.table.NormalizeShallow(a, 0); ok {
		return u.unifyTyTy(normalized, b)
	}
	if normalized, ok := u.table.NormalizeShallow(b, 0); ok {
		return u.unifyTyTy(a, normalized)
	}

	if projection, ok := a.(ir.ProjectionTy); ok {
		return u.unifyProjectionTy(projection, b)
	}
	if projection, ok := b.(ir.ProjectionTy); ok {
		return u.unifyProjectionTy(projection, a)
	}

	switch a := a.(type) {
	case ir.TyVar:
		if b, ok := b.(ir.TyVar); ok {
			return u.table.tyUnify.UnifyVarVar(TyVarFromDepth(a.Depth), TyVarFromDepth(b.Depth))
		}
		return u.unifyVarTy(TyVarFromDepth(a.Depth), b)

	case ir.ForAllTy:
		switch b := b.(type) {
		case ir.TyVar:
			return u.unifyVarTy(TyVarFromDepth(b.Depth), a)
		case ir.ForAllTy:
			return u.unifyForAllTys(a, b)
		default:
			return u.unifyForAllOther(a, b)
		}

	case ir.ApplyTy:
		switch b := b.(type) {
		case ir.TyVar:
			return u.unifyVarTy(TyVarFromDepth(b.Depth), a)
		case ir.ForAllTy:
			return u.unifyForAllOther(b, a)
		case ir.ApplyTy:
			return u.unifyApplyTys(a, b)
		}
	}
	panic(fmt.Sprintf("unexpected types in unification: %T and %T", a, b))
}

func (u *unifier) unifyApplyTys(a, b ir.ApplyTy) error {
	if a.Name != b.Name {
		return noSolution(HeadMismatch, a, b)
	}
	if len(a.Parameters) != len(b.Parameters) {
		return noSolution(ArityMismatch, a, b)
	}
	for i := range a.Parameters {
		if err := u.unifyParameters(a.Parameters[i], b.Parameters[i]); err != nil {
			return err
		}
	}
	return nil
}

func (u *unifier) unifyParameters(a, b ir.Parameter) error {
	if a.Kind() != b.Kind() {
		return noSolution(KindMismatch, a, b)
	}
	if a.Kind() == ir.KindLifetime {
		return u.unifyLifetimeLifetime(a.Lifetime, b.Lifetime)
	}
	return u.unifyTyTy(a.Ty, b.Ty)
}

// unifyForAllTys decides for<'a..> T == for<'b..> U, which holds when
//
//	forall<'a..> exists<'b..> T == U
//
// and symmetrically
func (u *unifier) unifyForAllTys(a, b ir.ForAllTy) error {
	if err := u.unifyForAllOneWay(a, b); err != nil {
		return err
	}
	return u.unifyForAllOneWay(b, a)
}

func (u *unifier) unifyForAllOneWay(universal, existential ir.ForAllTy) error {
	ui := u.table.NewUniverse()
	opened := universal.Instantiate(placeholderLifetimes(ui, universal.NumBinders))

	fresh := make([]ir.Lifetime, existential.NumBinders)
	for i := range fresh {
		fresh[i] = u.table.NewLifetimeVariable(ui).ToLifetime()
	}
	return u.unifyTyTy(opened, existential.Instantiate(fresh))
}

// unifyForAllOther compares a higher-ranked type with a type that is not: the binders
// become placeholders nothing outside can name
func (u *unifier) unifyForAllOther(forAll ir.ForAllTy, other ir.Ty) error {
	ui := u.table.NewUniverse()
	return u.unifyTyTy(forAll.Instantiate(placeholderLifetimes(ui, forAll.NumBinders)), other)
}

func placeholderLifetimes(ui ir.UniverseIndex, n int) []ir.Lifetime {
	lifetimes := make([]ir.Lifetime, n)
	for i := range lifetimes {
		lifetimes[i] = ir.PlaceholderLifetime{Placeholder: ir.PlaceholderIndex{Universe: ui, Idx: i}}
	}
	return lifetimes
}

func (u *unifier) unifyProjectionTy(projection ir.ProjectionTy, ty ir.Ty) error {
	u.goals = append(u.goals, ir.Normalize{Projection: projection, Ty: ty})
	return nil
}

func (u *unifier) unifyVarTy(v TyInferenceVariable, ty ir.Ty) error {
	ui, unbound := u.table.UniverseOfUnbound(v)
	if !unbound {
		panic(fmt.Sprintf("binding %s, which is already bound", v))
	}
	check := occursCheck{
		table:    u.table,
		root:     u.table.Root(v),
		universe: ui,
		visited:  set.New[TyInferenceVariable](0),
	}
	if kind, ok := check.ty(ty, 0); !ok {
		return noSolution(kind, v, ty)
	}
	return u.table.tyUnify.UnifyVarValue(v, Bound(ty))
}

func (u *unifier) unifyLifetimeLifetime(a, b ir.Lifetime) error {
	if normalized, ok := u.table.NormalizeLifetime(a, 0); ok {
		return u.unifyLifetimeLifetime(normalized, b)
	}
	if normalized, ok := u.table.NormalizeLifetime(b, 0); ok {
		return u.unifyLifetimeLifetime(a, normalized)
	}

	switch a := a.(type) {
	case ir.LifetimeVar:
		switch b := b.(type) {
		case ir.LifetimeVar:
			return u.table.lifetimeUnify.UnifyVarVar(LifetimeVarFromDepth(a.Depth), LifetimeVarFromDepth(b.Depth))
		case ir.PlaceholderLifetime:
			return u.unifyLifetimeVarPlaceholder(LifetimeVarFromDepth(a.Depth), b)
		}
	case ir.PlaceholderLifetime:
		switch b := b.(type) {
		case ir.LifetimeVar:
			return u.unifyLifetimeVarPlaceholder(LifetimeVarFromDepth(b.Depth), a)
		case ir.PlaceholderLifetime:
			if a != b {
				return noSolution(PlaceholderMismatch, a, b)
			}
			return nil
		}
	}
	panic(fmt.Sprintf("unexpected lifetimes in unification: %T and %T", a, b))
}

func (u *unifier) unifyLifetimeVarPlaceholder(v LifetimeInferenceVariable, placeholder ir.PlaceholderLifetime) error {
	ui, unbound := u.table.LifetimeUniverseOfUnbound(v)
	if !unbound {
		panic(fmt.Sprintf("binding %s, which is already bound", v))
	}
	if !ui.CanSee(placeholder.Placeholder.Universe) {
		return noSolution(UniverseEscape, v, placeholder)
	}
	return u.table.lifetimeUnify.UnifyVarValue(v, Bound[ir.Lifetime](placeholder))
}

// occursCheck vets a type about to be bound to root: root must not occur in it and
// every placeholder in it must be visible from universe. Unbound variables found in
// larger universes are lowered to universe, so they cannot later be bound to
// placeholders root cannot see.
type occursCheck struct {
	table    *InferenceTable
	root     TyInferenceVariable
	universe ir.UniverseIndex
	visited  *set.Set[TyInferenceVariable]
}

func (c occursCheck) ty(ty ir.Ty, binders int) (FailureKind, bool) {
	switch ty := ty.(type) {
	case ir.TyVar:
		if ty.Depth < binders {
			return 0, true
		}
		v := c.table.Root(TyVarFromDepth(ty.Depth - binders))
		if v == c.root {
			return Cycle, false
		}
		if !c.visited.Insert(v) {
			return 0, true
		}
		if value, bound := c.table.ProbeVar(v); bound {
			return c.ty(value, 0)
		}
		if ui, _ := c.table.UniverseOfUnbound(v); !c.universe.CanSee(ui) {
			_ = c.table.tyUnify.UnifyVarValue(v, Unbound[ir.Ty](c.universe))
		}
		return 0, true

	case ir.ApplyTy:
		if placeholder, ok := ty.Name.(ir.PlaceholderIndex); ok && !c.universe.CanSee(placeholder.Universe) {
			return UniverseEscape, false
		}
		return c.parameters(ty.Parameters, binders)

	case ir.ProjectionTy:
		return c.parameters(ty.Parameters, binders)

	case ir.ForAllTy:
		return c.ty(ty.Ty, binders+ty.NumBinders)
	}
	panic(fmt.Sprintf("unexpected type in occurs check: %T", ty))
}

func (c occursCheck) parameters(params ir.Parameters, binders int) (FailureKind, bool) {
	for _, p := range params {
		if p.Kind() == ir.KindLifetime {
			if kind, ok := c.lifetime(p.Lifetime, binders); !ok {
				return kind, false
			}
			continue
		}
		if kind, ok := c.ty(p.Ty, binders); !ok {
			return kind, false
		}
	}
	return 0, true
}

func (c occursCheck) lifetime(lt ir.Lifetime, binders int) (FailureKind, bool) {
	switch lt := lt.(type) {
	case ir.LifetimeVar:
		if lt.Depth < binders {
			return 0, true
		}
		v := LifetimeVarFromDepth(lt.Depth - binders)
		if value, bound := c.table.ProbeLifetimeVar(v); bound {
			return c.lifetime(value, 0)
		}
		if ui, _ := c.table.LifetimeUniverseOfUnbound(v); !c.universe.CanSee(ui) {
			_ = c.table.lifetimeUnify.UnifyVarValue(v, Unbound[ir.Lifetime](c.universe))
		}
		return 0, true

	case ir.PlaceholderLifetime:
		if !c.universe.CanSee(lt.Placeholder.Universe) {
			return UniverseEscape, false
		}
		return 0, true
	}
	panic(fmt.Sprintf("unexpected lifetime in occurs check: %T", lt))
}
