package infer

import (
	"fmt"

	"github.com/cottand/ilesolve/ir"
)

// TyInferenceVariable is a key into the type union-find store.
// Embedded in a term at top level it is ir.TyVar{Depth: index}.
type TyInferenceVariable uint32

func TyVarFromDepth(depth int) TyInferenceVariable {
	return TyInferenceVariable(depth)
}

func (v TyInferenceVariable) ToDepth() int {
	return int(v)
}

// ToTy embeds v in a term appearing under no binders
func (v TyInferenceVariable) ToTy() ir.Ty {
	return ir.TyVar{Depth: v.ToDepth()}
}

func (v TyInferenceVariable) String() string {
	return fmt.Sprintf("?%d", uint32(v))
}

// LifetimeInferenceVariable is a key into the lifetime union-find store
type LifetimeInferenceVariable uint32

func LifetimeVarFromDepth(depth int) LifetimeInferenceVariable {
	return LifetimeInferenceVariable(depth)
}

func (v LifetimeInferenceVariable) ToDepth() int {
	return int(v)
}

func (v LifetimeInferenceVariable) ToLifetime() ir.Lifetime {
	return ir.LifetimeVar{Depth: v.ToDepth()}
}

func (v LifetimeInferenceVariable) String() string {
	return fmt.Sprintf("'?%d", uint32(v))
}

// ParameterInferenceVariable is an inference variable of either kind
type ParameterInferenceVariable struct {
	Kind     ir.Kind
	Ty       TyInferenceVariable
	Lifetime LifetimeInferenceVariable
}

func (v ParameterInferenceVariable) ToParameter() ir.Parameter {
	if v.Kind == ir.KindLifetime {
		return ir.LifetimeParam(v.Lifetime.ToLifetime())
	}
	return ir.TyParam(v.Ty.ToTy())
}

func (v ParameterInferenceVariable) String() string {
	if v.Kind == ir.KindLifetime {
		return v.Lifetime.String()
	}
	return v.Ty.String()
}

// TyInferenceVar returns the variable ty refers to, if ty is a variable.
// Only meaningful when ty is not nested under binders.
func TyInferenceVar(ty ir.Ty) (TyInferenceVariable, bool) {
	if v, ok := ty.(ir.TyVar); ok {
		return TyVarFromDepth(v.Depth), true
	}
	return 0, false
}

// LifetimeInferenceVar is the lifetime counterpart of TyInferenceVar
func LifetimeInferenceVar(lt ir.Lifetime) (LifetimeInferenceVariable, bool) {
	if v, ok := lt.(ir.LifetimeVar); ok {
		return LifetimeVarFromDepth(v.Depth), true
	}
	return 0, false
}

// InferenceValue is the state of a union-find set: unbound within a universe, or bound
type InferenceValue[T any] struct {
	bound    bool
	Value    T
	Universe ir.UniverseIndex
}

func Unbound[T any](ui ir.UniverseIndex) InferenceValue[T] {
	return InferenceValue[T]{Universe: ui}
}

func Bound[T any](value T) InferenceValue[T] {
	return InferenceValue[T]{bound: true, Value: value}
}

func (v InferenceValue[T]) IsBound() bool {
	return v.bound
}

// mergeValues joins two sets: unbound sets keep the smaller universe and a bound set
// keeps its value. Two bound sets are never joined: the unifier resolves them first.
func mergeValues[T any](a, b InferenceValue[T]) (InferenceValue[T], error) {
	switch {
	case a.bound && b.bound:
		panic("joining two bound inference variables")
	case a.bound:
		return a, nil
	case b.bound:
		return b, nil
	default:
		return Unbound[T](ir.MinUniverse(a.Universe, b.Universe)), nil
	}
}
