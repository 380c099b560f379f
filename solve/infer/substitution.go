package infer

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/cottand/ilesolve/ir"
)

type positionComparer struct{}

func (positionComparer) Compare(a, b int) int {
	return cmp.Compare(a, b)
}

// Substitution maps the positions of a binder to the terms replacing them.
// Type and lifetime entries are kept apart; together their positions are 0..Len()-1.
type Substitution struct {
	Tys       *immutable.SortedMap[int, ir.Ty]
	Lifetimes *immutable.SortedMap[int, ir.Lifetime]
}

func NewSubstitution() Substitution {
	return Substitution{
		Tys:       immutable.NewSortedMap[int, ir.Ty](positionComparer{}),
		Lifetimes: immutable.NewSortedMap[int, ir.Lifetime](positionComparer{}),
	}
}

// SubstitutionFromParameters maps position i to params[i]
func SubstitutionFromParameters(params []ir.Parameter) Substitution {
	tys := immutable.NewSortedMapBuilder[int, ir.Ty](positionComparer{})
	lifetimes := immutable.NewSortedMapBuilder[int, ir.Lifetime](positionComparer{})
	for i, p := range params {
		if p.Kind() == ir.KindLifetime {
			lifetimes.Set(i, p.Lifetime)
		} else {
			tys.Set(i, p.Ty)
		}
	}
	return Substitution{Tys: tys.Map(), Lifetimes: lifetimes.Map()}
}

func (s Substitution) init() Substitution {
	if s.Tys == nil {
		s.Tys = immutable.NewSortedMap[int, ir.Ty](positionComparer{})
	}
	if s.Lifetimes == nil {
		s.Lifetimes = immutable.NewSortedMap[int, ir.Lifetime](positionComparer{})
	}
	return s
}

// With returns a copy of s with position i mapped to p
func (s Substitution) With(i int, p ir.Parameter) Substitution {
	s = s.init()
	if p.Kind() == ir.KindLifetime {
		return Substitution{Tys: s.Tys.Delete(i), Lifetimes: s.Lifetimes.Set(i, p.Lifetime)}
	}
	return Substitution{Tys: s.Tys.Set(i, p.Ty), Lifetimes: s.Lifetimes.Delete(i)}
}

func (s Substitution) Len() int {
	s = s.init()
	return s.Tys.Len() + s.Lifetimes.Len()
}

func (s Substitution) Get(i int) (ir.Parameter, bool) {
	s = s.init()
	if ty, ok := s.Tys.Get(i); ok {
		return ir.TyParam(ty), true
	}
	if lt, ok := s.Lifetimes.Get(i); ok {
		return ir.LifetimeParam(lt), true
	}
	return ir.Parameter{}, false
}

// Parameters lists the entries of s in position order.
// It panics if the positions of s are not dense.
func (s Substitution) Parameters() []ir.Parameter {
	params := make([]ir.Parameter, s.Len())
	for i := range params {
		p, ok := s.Get(i)
		if !ok {
			panic(fmt.Sprintf("substitution %s has no entry at position %d", s, i))
		}
		params[i] = p
	}
	return params
}

// IsTrivialWithin reports whether applying s in t would change nothing, that is
// whether no entry of s is an inference variable t has since bound
func (s Substitution) IsTrivialWithin(t *InferenceTable) bool {
	s = s.init()
	tys := s.Tys.Iterator()
	for !tys.Done() {
		_, ty, _ := tys.Next()
		if v, ok := TyInferenceVar(ty); ok {
			if _, bound := t.ProbeVar(v); bound {
				return false
			}
		}
	}
	lifetimes := s.Lifetimes.Iterator()
	for !lifetimes.Done() {
		_, lt, _ := lifetimes.Next()
		if v, ok := LifetimeInferenceVar(lt); ok {
			if _, bound := t.ProbeLifetimeVar(v); bound {
				return false
			}
		}
	}
	return true
}

func (s Substitution) String() string {
	s = s.init()
	entries := make([]string, 0, s.Len())
	for i := 0; len(entries) < s.Len(); i++ {
		if p, ok := s.Get(i); ok {
			entries = append(entries, fmt.Sprintf("%d := %s", i, p))
		}
	}
	return "[" + strings.Join(entries, ", ") + "]"
}

// Apply replaces the variables bound at the positions of s in value by the entries
// of s
func Apply[T ir.Foldable[T]](s Substitution, value T) T {
	return ir.Subst(s.Parameters(), value)
}
