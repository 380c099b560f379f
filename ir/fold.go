package ir

import "fmt"

// Folder rewrites the free variables of a term.
//
// depth is the index of the variable once the binders enclosing it inside the term
// have been discounted; binders is the number of those binders. The returned term must
// be valid under binders binders.
type Folder interface {
	FoldFreeVar(depth, binders int) (Ty, error)
	FoldFreeLifetimeVar(depth, binders int) (Lifetime, error)
}

// Foldable is any term a Folder can rebuild
type Foldable[T any] interface {
	FoldWith(f Folder, binders int) (T, error)
}

// MustFold folds value with a folder that never fails
func MustFold[T Foldable[T]](value T, f Folder, binders int) T {
	folded, err := value.FoldWith(f, binders)
	if err != nil {
		panic(fmt.Sprintf("infallible folder %T failed: %v", f, err))
	}
	return folded
}

func (t TyVar) FoldWith(f Folder, binders int) (Ty, error) {
	if t.Depth < binders {
		return t, nil
	}
	return f.FoldFreeVar(t.Depth-binders, binders)
}

func (t ApplyTy) FoldWith(f Folder, binders int) (Ty, error) {
	params, err := t.Parameters.FoldWith(f, binders)
	if err != nil {
		return nil, err
	}
	return ApplyTy{Name: t.Name, Parameters: params}, nil
}

func (t ProjectionTy) FoldWith(f Folder, binders int) (Ty, error) {
	return t.foldProjection(f, binders)
}

func (t ProjectionTy) foldProjection(f Folder, binders int) (ProjectionTy, error) {
	params, err := t.Parameters.FoldWith(f, binders)
	if err != nil {
		return ProjectionTy{}, err
	}
	return ProjectionTy{AssociatedTy: t.AssociatedTy, Parameters: params}, nil
}

func (t ForAllTy) FoldWith(f Folder, binders int) (Ty, error) {
	inner, err := t.Ty.FoldWith(f, binders+t.NumBinders)
	if err != nil {
		return nil, err
	}
	return ForAllTy{NumBinders: t.NumBinders, Ty: inner}, nil
}

func (l LifetimeVar) FoldWith(f Folder, binders int) (Lifetime, error) {
	if l.Depth < binders {
		return l, nil
	}
	return f.FoldFreeLifetimeVar(l.Depth-binders, binders)
}

func (l PlaceholderLifetime) FoldWith(Folder, int) (Lifetime, error) {
	return l, nil
}

func (p Parameter) FoldWith(f Folder, binders int) (Parameter, error) {
	if p.Lifetime != nil {
		l, err := p.Lifetime.FoldWith(f, binders)
		return Parameter{Lifetime: l}, err
	}
	t, err := p.Ty.FoldWith(f, binders)
	return Parameter{Ty: t}, err
}

func (ps Parameters) FoldWith(f Folder, binders int) (Parameters, error) {
	if len(ps) == 0 {
		return ps, nil
	}
	folded := make(Parameters, len(ps))
	for i, p := range ps {
		var err error
		if folded[i], err = p.FoldWith(f, binders); err != nil {
			return nil, err
		}
	}
	return folded, nil
}

func (n Normalize) FoldWith(f Folder, binders int) (Normalize, error) {
	projection, err := n.Projection.foldProjection(f, binders)
	if err != nil {
		return Normalize{}, err
	}
	ty, err := n.Ty.FoldWith(f, binders)
	if err != nil {
		return Normalize{}, err
	}
	return Normalize{Projection: projection, Ty: ty}, nil
}
