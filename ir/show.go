package ir

import (
	"fmt"
	"strings"
)

// The printed form of every term is accepted by Parse:
//
//	?0            type variable at depth 0
//	'?1           lifetime variable at depth 1
//	!1.0          placeholder type 0 of universe 1
//	'!1.0         placeholder lifetime 0 of universe 1
//	Vec<?0, '?1>  applied type
//	Iterator::Item<?0>  projection (any name containing ::)
//	for<2> Fn<'?0, '?1> higher-ranked type binding 2 lifetimes

func (t TyVar) String() string {
	return fmt.Sprintf("?%d", t.Depth)
}

func (t ApplyTy) String() string {
	return t.Name.String() + t.Parameters.String()
}

func (t ProjectionTy) String() string {
	return string(t.AssociatedTy) + t.Parameters.String()
}

func (t ForAllTy) String() string {
	return fmt.Sprintf("for<%d> %s", t.NumBinders, t.Ty)
}

func (l LifetimeVar) String() string {
	return fmt.Sprintf("'?%d", l.Depth)
}

func (l PlaceholderLifetime) String() string {
	return "'" + l.Placeholder.String()
}

func (p Parameter) String() string {
	if p.Lifetime != nil {
		return p.Lifetime.String()
	}
	if p.Ty == nil {
		return "<nil>"
	}
	return p.Ty.String()
}

// String prints nothing for an empty list, otherwise <p1, p2, ...>
func (ps Parameters) String() string {
	if len(ps) == 0 {
		return ""
	}
	sb := &strings.Builder{}
	sb.WriteString("<")
	for i, p := range ps {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(">")
	return sb.String()
}

func (n Normalize) String() string {
	return fmt.Sprintf("Normalize(%s -> %s)", n.Projection, n.Ty)
}
