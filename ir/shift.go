package ir

type shifter struct {
	adjustment int
}

func (s shifter) FoldFreeVar(depth, binders int) (Ty, error) {
	return TyVar{Depth: depth + s.adjustment + binders}, nil
}

func (s shifter) FoldFreeLifetimeVar(depth, binders int) (Lifetime, error) {
	return LifetimeVar{Depth: depth + s.adjustment + binders}, nil
}

// UpShift adds adjustment to every free variable of value, so that value stays valid
// when placed under adjustment more binders
func UpShift[T Foldable[T]](value T, adjustment int) T {
	if adjustment == 0 {
		return value
	}
	return MustFold(value, shifter{adjustment: adjustment}, 0)
}

type substitutor struct {
	parameters []Parameter
}

func (s substitutor) FoldFreeVar(depth, binders int) (Ty, error) {
	if depth >= len(s.parameters) {
		return TyVar{Depth: depth - len(s.parameters) + binders}, nil
	}
	p := s.parameters[depth]
	if p.Ty == nil {
		panic("substituting a lifetime for a type variable")
	}
	return UpShift(p.Ty, binders), nil
}

func (s substitutor) FoldFreeLifetimeVar(depth, binders int) (Lifetime, error) {
	if depth >= len(s.parameters) {
		return LifetimeVar{Depth: depth - len(s.parameters) + binders}, nil
	}
	p := s.parameters[depth]
	if p.Lifetime == nil {
		panic("substituting a type for a lifetime variable")
	}
	return UpShift(p.Lifetime, binders), nil
}

// Subst removes the outermost binder of value by replacing its variable i with
// parameters[i]. Free variables past the binder are shifted down by len(parameters).
// parameters are expressed outside the binder.
func Subst[T Foldable[T]](parameters []Parameter, value T) T {
	return MustFold(value, substitutor{parameters: parameters}, 0)
}

// Instantiate opens a ForAllTy with the given lifetimes
func (t ForAllTy) Instantiate(lifetimes []Lifetime) Ty {
	if len(lifetimes) != t.NumBinders {
		panic("wrong number of lifetimes to instantiate for<..> type")
	}
	params := make([]Parameter, len(lifetimes))
	for i, l := range lifetimes {
		params[i] = LifetimeParam(l)
	}
	return Subst(params, t.Ty)
}
