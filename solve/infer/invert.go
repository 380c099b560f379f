package infer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cottand/ilesolve/ir"
	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"
)

// Invert returns the substitution mapping each canonical position of c back to the
// inference variable it replaced
func (c Canonicalized[T]) Invert() (Substitution, error) {
	binders := c.Quantified.Binders
	if len(c.FreeVars) != len(binders) {
		return Substitution{}, errors.Wrapf(ErrMalformedCanonical, "%d free variables for %d binders", len(c.FreeVars), len(binders))
	}
	seen := set.New[ParameterInferenceVariable](len(c.FreeVars))
	params := make([]ir.Parameter, len(c.FreeVars))
	for i, fv := range c.FreeVars {
		if !seen.Insert(fv.Var) {
			return Substitution{}, errors.Wrapf(ErrMalformedCanonical, "%s bound at two positions", fv.Var)
		}
		if fv.Var.Kind != binders[i].Kind {
			return Substitution{}, errors.Wrapf(ErrMalformedCanonical, "%s bound by %s at position %d", fv.Var, binders[i], i)
		}
		params[i] = fv.Var.ToParameter()
	}
	return SubstitutionFromParameters(params), nil
}

// Solution answers a query: a value for each variable of the query, in the order of
// its binders, and the obligations left to prove
type Solution struct {
	Subst ir.Parameters
	Goals []ir.Normalize
}

func (s Solution) FoldWith(f ir.Folder, binders int) (Solution, error) {
	subst, err := s.Subst.FoldWith(f, binders)
	if err != nil {
		return Solution{}, err
	}
	if len(s.Goals) == 0 {
		return Solution{Subst: subst, Goals: s.Goals}, nil
	}
	goals := make([]ir.Normalize, len(s.Goals))
	for i, goal := range s.Goals {
		if goals[i], err = goal.FoldWith(f, binders); err != nil {
			return Solution{}, err
		}
	}
	return Solution{Subst: subst, Goals: goals}, nil
}

func (s Solution) String() string {
	if len(s.Goals) == 0 {
		return s.Subst.String()
	}
	goals := make([]string, len(s.Goals))
	for i, goal := range s.Goals {
		goals[i] = goal.String()
	}
	return fmt.Sprintf("%s if %s", s.Subst, strings.Join(goals, ", "))
}

// RelateAnswer applies answer, a canonical solution to the query c, to the variables
// c was canonicalized from. The variables of answer are instantiated in t.
// The returned goals are those of answer plus any unification produced.
func RelateAnswer[T any](t *InferenceTable, c Canonicalized[T], answer Quantified[Solution]) (UnificationResult, error) {
	inverse, err := c.Invert()
	if err != nil {
		return UnificationResult{}, err
	}
	if len(answer.Value.Subst) != inverse.Len() {
		return UnificationResult{}, errors.Wrapf(ErrMalformedCanonical, "answer %s has %d entries for %d variables", answer, len(answer.Value.Subst), inverse.Len())
	}
	originals := inverse.Parameters()
	return CommitIfOK(t, func(t *InferenceTable) (UnificationResult, error) {
		solution, _ := InstantiateCanonical(t, answer)
		goals := slices.Clone(solution.Goals)
		for i, p := range solution.Subst {
			result, err := t.UnifyParameters(originals[i], p)
			if err != nil {
				return UnificationResult{}, errors.Wrapf(err, "relating answer for %s", originals[i])
			}
			goals = append(goals, result.Goals...)
		}
		return UnificationResult{Goals: goals}, nil
	})
}
