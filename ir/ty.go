package ir

import "fmt"

var (
	_ Ty = TyVar{}
	_ Ty = ApplyTy{}
	_ Ty = ProjectionTy{}
	_ Ty = ForAllTy{}

	_ Lifetime = LifetimeVar{}
	_ Lifetime = PlaceholderLifetime{}

	_ TypeName = ItemName("")
	_ TypeName = PlaceholderIndex{}
)

// Ty is a type term. Variables are de Bruijn indexed: TyVar{Depth: d} under b binders
// refers to a bound variable if d < b and to inference variable d-b otherwise.
type Ty interface {
	fmt.Stringer
	FoldWith(f Folder, binders int) (Ty, error)
	isTy()
}

type TyVar struct {
	Depth int
}

// ApplyTy is a type constructor applied to parameters, e.g. Vec<?0>
type ApplyTy struct {
	Name       TypeName
	Parameters Parameters
}

// ProjectionTy is an associated type, e.g. Iterator::Item<?0>.
// Its value is not known to the unifier, so equating it with another type yields a
// Normalize obligation.
type ProjectionTy struct {
	AssociatedTy ItemName
	Parameters   Parameters
}

// ForAllTy is a higher-ranked type binding NumBinders lifetimes in Ty
type ForAllTy struct {
	NumBinders int
	Ty         Ty
}

func (TyVar) isTy()        {}
func (ApplyTy) isTy()      {}
func (ProjectionTy) isTy() {}
func (ForAllTy) isTy()     {}

// TypeName is the head of an ApplyTy: either an ItemName or a PlaceholderIndex
type TypeName interface {
	fmt.Stringer
	isTypeName()
}

type ItemName string

func (ItemName) isTypeName() {}

func (n ItemName) String() string { return string(n) }

// Lifetime is a lifetime term, indexed like Ty
type Lifetime interface {
	fmt.Stringer
	FoldWith(f Folder, binders int) (Lifetime, error)
	isLifetime()
}

type LifetimeVar struct {
	Depth int
}

type PlaceholderLifetime struct {
	Placeholder PlaceholderIndex
}

func (LifetimeVar) isLifetime()         {}
func (PlaceholderLifetime) isLifetime() {}

// Kind distinguishes type from lifetime parameters
type Kind uint8

const (
	KindTy Kind = iota
	KindLifetime
)

func (k Kind) String() string {
	switch k {
	case KindTy:
		return "ty"
	case KindLifetime:
		return "lt"
	default:
		return "invalid"
	}
}

// ParameterKind is the kind and universe of one quantifier position
type ParameterKind struct {
	Kind     Kind
	Universe UniverseIndex
}

func (pk ParameterKind) String() string {
	return fmt.Sprintf("%s@%d", pk.Kind, uint32(pk.Universe))
}

// Parameter holds exactly one of Ty or Lifetime
type Parameter struct {
	Ty       Ty
	Lifetime Lifetime
}

func TyParam(t Ty) Parameter { return Parameter{Ty: t} }

func LifetimeParam(l Lifetime) Parameter { return Parameter{Lifetime: l} }

func (p Parameter) Kind() Kind {
	if p.Lifetime != nil {
		return KindLifetime
	}
	return KindTy
}

type Parameters []Parameter

// Normalize is the obligation `Projection == Ty`, deferred to the outer solver
type Normalize struct {
	Projection ProjectionTy
	Ty         Ty
}
