package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cottand/ilesolve/internal/log"
	"github.com/cottand/ilesolve/ir"
	"github.com/cottand/ilesolve/solve/cache"
	"github.com/cottand/ilesolve/solve/infer"
	"github.com/cottand/ilesolve/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Problem is a scripted session against a fresh inference table:
//
//	name: list-of-b
//	vars: [ty@0, ty@0]
//	steps:
//	  - unify: ["?0", "List<?1>"]
//	  - snapshot: s1
//	  - unify: ["?1", "Int"]
//	  - rollback: s1
//	  - expect-fail: ["?0", "Int"]
//	show: ["?0", "?1"]
type Problem struct {
	Name string `yaml:"name"`
	// Vars declares the variables of the table in creation order, as kind@universe
	Vars  []string `yaml:"vars"`
	Steps []Step   `yaml:"steps"`
	Show  []string `yaml:"show"`
}

// Step is one action on the table. Exactly one field is set.
type Step struct {
	Unify      []string `yaml:"unify,omitempty"`
	ExpectFail []string `yaml:"expect-fail,omitempty"`
	// Query unifies through the canonical query cache
	Query       []string `yaml:"query,omitempty"`
	Snapshot    string   `yaml:"snapshot,omitempty"`
	Rollback    string   `yaml:"rollback,omitempty"`
	Commit      string   `yaml:"commit,omitempty"`
	NewUniverse bool     `yaml:"new-universe,omitempty"`
}

// Report is the state of a table after its problem ran
type Report struct {
	Name string
	// Bindings pairs each shown term with its deep normalization
	Bindings  []util.Pair[string, string]
	Canonical string
	Goals     []string
}

func (r Report) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "== %s\n", r.Name)
	for _, binding := range r.Bindings {
		fmt.Fprintln(sb, binding)
	}
	fmt.Fprintf(sb, "canonical: %s\n", r.Canonical)
	for _, goal := range r.Goals {
		fmt.Fprintf(sb, "goal: %s\n", goal)
	}
	return sb.String()
}

// QueryAnswer is what the query cache stores: the canonical solution of a query, or
// the reason it has none
type QueryAnswer struct {
	Solution infer.Quantified[infer.Solution]
	Err      error
}

// ParseProblems reads every YAML document of r as a Problem
func ParseProblems(r io.Reader) ([]Problem, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var problems []Problem
	for {
		var p Problem
		err := decoder.Decode(&p)
		if errors.Is(err, io.EOF) {
			return problems, nil
		}
		if err != nil {
			return nil, fmt.Errorf("could not decode problem %d: %w", len(problems), err)
		}
		problems = append(problems, p)
	}
}

type namedSnapshot struct {
	name     string
	snapshot infer.InferenceSnapshot
}

type session struct {
	table     *infer.InferenceTable
	snapshots util.Stack[namedSnapshot]
	queries   *cache.Cache[QueryAnswer]
	goals     []ir.Normalize
	logger    *slog.Logger
}

// Run executes p on a table of its own. Queries are answered through queries, which
// may be shared between problems.
func (p Problem) Run(queries *cache.Cache[QueryAnswer]) (Report, error) {
	s := &session{
		table:   infer.NewInferenceTable(),
		queries: queries,
		logger:  log.Section("cmd").With("problem", p.Name),
	}
	for _, v := range p.Vars {
		pk, err := ir.ParseParameterKind(v)
		if err != nil {
			return Report{}, fmt.Errorf("problem %s: %w", p.Name, err)
		}
		if next := s.table.MaxUniverse().Next(); pk.Universe > next {
			return Report{}, fmt.Errorf("problem %s: variable %s skips universes, the next one is %s", p.Name, v, next)
		}
		for s.table.MaxUniverse() < pk.Universe {
			s.table.NewUniverse()
		}
		s.table.NewParameterVariable(pk)
	}

	for i, step := range p.Steps {
		if err := s.run(step); err != nil {
			return Report{}, fmt.Errorf("problem %s, step %d: %w", p.Name, i, err)
		}
	}
	if open, ok := s.snapshots.Peek(); ok {
		return Report{}, fmt.Errorf("problem %s: snapshot %q is never closed", p.Name, open.name)
	}
	return s.report(p)
}

func (s *session) run(step Step) error {
	switch {
	case step.Unify != nil:
		a, b, err := s.parsePair(step.Unify)
		if err != nil {
			return err
		}
		result, err := s.table.UnifyParameters(a, b)
		if err != nil {
			return fmt.Errorf("could not unify %s with %s: %w", a, b, err)
		}
		s.goals = append(s.goals, result.Goals...)

	case step.ExpectFail != nil:
		a, b, err := s.parsePair(step.ExpectFail)
		if err != nil {
			return err
		}
		_, err = s.table.UnifyParameters(a, b)
		if err == nil {
			return fmt.Errorf("expected %s and %s not to unify", a, b)
		}
		if !errors.Is(err, infer.ErrNoSolution) {
			return err
		}
		s.logger.Debug("failed as expected", "err", err)

	case step.Query != nil:
		a, b, err := s.parsePair(step.Query)
		if err != nil {
			return err
		}
		if err := s.query(a, b); err != nil {
			return fmt.Errorf("query %s == %s failed: %w", a, b, err)
		}

	case step.Snapshot != "":
		s.snapshots.Push(namedSnapshot{name: step.Snapshot, snapshot: s.table.Snapshot()})

	case step.Rollback != "":
		open, err := s.closeSnapshot(step.Rollback)
		if err != nil {
			return err
		}
		s.table.RollbackTo(open.snapshot)

	case step.Commit != "":
		open, err := s.closeSnapshot(step.Commit)
		if err != nil {
			return err
		}
		s.table.Commit(open.snapshot)

	case step.NewUniverse:
		s.table.NewUniverse()

	default:
		return errors.New("empty step")
	}
	return nil
}

// closeSnapshot pops the innermost snapshot, which must be the one called name
func (s *session) closeSnapshot(name string) (namedSnapshot, error) {
	open, ok := s.snapshots.Peek()
	if !ok {
		return namedSnapshot{}, fmt.Errorf("no open snapshot to close, wanted %q", name)
	}
	if open.name != name {
		return namedSnapshot{}, fmt.Errorf("snapshot %q must be closed before %q", open.name, name)
	}
	s.snapshots.Pop()
	return open, nil
}

// query answers a == b the way a solver answers a goal: the goal is canonicalized,
// solved in a table of its own unless its answer is cached, and the answer is related
// back to this table
func (s *session) query(a, b ir.Parameter) error {
	goal := ir.Parameters{a, b}
	canonical := infer.Canonicalize(s.table, goal)
	key := cache.KeyOf(canonical)
	maxUniverse := s.table.MaxUniverse()
	answer, err := s.queries.GetOrCompute(key, func() (QueryAnswer, error) {
		s.logger.Debug("solving query", "query", canonical.Quantified, "key", key)
		return solveQuery(canonical.Quantified, maxUniverse), nil
	})
	if err != nil {
		return err
	}
	if answer.Err != nil {
		return answer.Err
	}
	result, err := infer.RelateAnswer(s.table, canonical, answer.Solution)
	if err != nil {
		return err
	}
	s.goals = append(s.goals, result.Goals...)
	return nil
}

// solveQuery unifies the two parameters of query in a fresh table whose universes
// reach maxUniverse, so that placeholders of the query keep their meaning
func solveQuery(query infer.Quantified[ir.Parameters], maxUniverse ir.UniverseIndex) QueryAnswer {
	table := infer.NewInferenceTable()
	for table.MaxUniverse() < maxUniverse {
		table.NewUniverse()
	}
	opened, subst := infer.InstantiateCanonical(table, query)
	result, err := table.UnifyParameters(opened[0], opened[1])
	if err != nil {
		return QueryAnswer{Err: err}
	}
	solution := infer.Canonicalize(table, infer.Solution{Subst: subst.Parameters(), Goals: result.Goals})
	return QueryAnswer{Solution: solution.Quantified}
}

func (s *session) report(p Problem) (Report, error) {
	report := Report{Name: p.Name}
	shown := make(ir.Parameters, len(p.Show))
	for i, src := range p.Show {
		param, err := s.parse(src)
		if err != nil {
			return Report{}, fmt.Errorf("problem %s: %w", p.Name, err)
		}
		shown[i] = infer.DeepNormalize(s.table, param)
		report.Bindings = append(report.Bindings, util.NewPair(src, shown[i].String()))
	}
	report.Canonical = infer.Canonicalize(s.table, shown).Quantified.String()
	for _, goal := range s.goals {
		report.Goals = append(report.Goals, infer.DeepNormalize(s.table, goal).String())
	}
	return report, nil
}

func (s *session) parsePair(srcs []string) (ir.Parameter, ir.Parameter, error) {
	if len(srcs) != 2 {
		return ir.Parameter{}, ir.Parameter{}, fmt.Errorf("expected two terms, got %d", len(srcs))
	}
	a, err := s.parse(srcs[0])
	if err != nil {
		return ir.Parameter{}, ir.Parameter{}, err
	}
	b, err := s.parse(srcs[1])
	if err != nil {
		return ir.Parameter{}, ir.Parameter{}, err
	}
	return a, b, nil
}

// parse reads a term and checks every variable it refers to exists in the table
func (s *session) parse(src string) (ir.Parameter, error) {
	param, err := ir.ParseParameter(src)
	if err != nil {
		return ir.Parameter{}, err
	}
	bounds := &varBounds{}
	ir.MustFold(param, bounds, 0)
	if tys := len(s.table.TyVars()); bounds.tys > tys {
		return ir.Parameter{}, fmt.Errorf("%s refers to ?%d, but there are %d type variables", src, bounds.tys-1, tys)
	}
	if lifetimes := len(s.table.LifetimeVars()); bounds.lifetimes > lifetimes {
		return ir.Parameter{}, fmt.Errorf("%s refers to '?%d, but there are %d lifetime variables", src, bounds.lifetimes-1, lifetimes)
	}
	return param, nil
}

// varBounds records how many inference variables of each kind a term needs
type varBounds struct {
	tys, lifetimes int
}

func (b *varBounds) FoldFreeVar(depth, binders int) (ir.Ty, error) {
	b.tys = max(b.tys, depth+1)
	return ir.TyVar{Depth: depth + binders}, nil
}

func (b *varBounds) FoldFreeLifetimeVar(depth, binders int) (ir.Lifetime, error) {
	b.lifetimes = max(b.lifetimes, depth+1)
	return ir.LifetimeVar{Depth: depth + binders}, nil
}
