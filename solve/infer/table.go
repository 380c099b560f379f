// Package infer implements the inference table of the solver: type and lifetime
// inference variables kept in union-find stores, and the operations built over them
// (unification, normalization, canonicalization, instantiation and inversion).
//
// An InferenceTable is mutable state owned by a single search thread. Parallel search
// forks a table with Clone instead of sharing it.
package infer

import (
	"log/slog"
	"slices"

	"github.com/cottand/ilesolve/internal/log"
	"github.com/cottand/ilesolve/internal/unionfind"
	"github.com/cottand/ilesolve/ir"
)

type (
	tyStore       = unionfind.Table[TyInferenceVariable, InferenceValue[ir.Ty]]
	lifetimeStore = unionfind.Table[LifetimeInferenceVariable, InferenceValue[ir.Lifetime]]
)

type InferenceTable struct {
	tyUnify       *tyStore
	tyVars        []TyInferenceVariable
	lifetimeUnify *lifetimeStore
	lifetimeVars  []LifetimeInferenceVariable
	maxUniverse   ir.UniverseIndex

	logger *slog.Logger
}

// InferenceSnapshot captures an InferenceTable so it can be restored with RollbackTo.
// It must be passed to exactly one of RollbackTo or Commit, innermost snapshot first.
type InferenceSnapshot struct {
	tyUnifySnapshot       unionfind.Snapshot[TyInferenceVariable, InferenceValue[ir.Ty]]
	lifetimeUnifySnapshot unionfind.Snapshot[LifetimeInferenceVariable, InferenceValue[ir.Lifetime]]
	// the creation lists are append-only, so their lengths stand for copies of them
	tyVars       int
	lifetimeVars int
	maxUniverse  ir.UniverseIndex
}

func NewInferenceTable() *InferenceTable {
	return &InferenceTable{
		tyUnify:       unionfind.New[TyInferenceVariable, InferenceValue[ir.Ty]](mergeValues[ir.Ty]),
		lifetimeUnify: unionfind.New[LifetimeInferenceVariable, InferenceValue[ir.Lifetime]](mergeValues[ir.Lifetime]),
		maxUniverse:   ir.Root,
		logger:        log.Section("infer"),
	}
}

// Clone returns an independent copy of t, for exploring a branch of the search on
// another goroutine. It panics if t has open snapshots.
func (t *InferenceTable) Clone() *InferenceTable {
	return &InferenceTable{
		tyUnify:       t.tyUnify.Clone(),
		tyVars:        slices.Clone(t.tyVars),
		lifetimeUnify: t.lifetimeUnify.Clone(),
		lifetimeVars:  slices.Clone(t.lifetimeVars),
		maxUniverse:   t.maxUniverse,
		logger:        t.logger,
	}
}

func (t *InferenceTable) NewVariable(ui ir.UniverseIndex) TyInferenceVariable {
	v := t.tyUnify.NewKey(Unbound[ir.Ty](ui))
	t.tyVars = append(t.tyVars, v)
	return v
}

func (t *InferenceTable) NewLifetimeVariable(ui ir.UniverseIndex) LifetimeInferenceVariable {
	v := t.lifetimeUnify.NewKey(Unbound[ir.Lifetime](ui))
	t.lifetimeVars = append(t.lifetimeVars, v)
	return v
}

func (t *InferenceTable) NewParameterVariable(pk ir.ParameterKind) ParameterInferenceVariable {
	switch pk.Kind {
	case ir.KindLifetime:
		return ParameterInferenceVariable{Kind: ir.KindLifetime, Lifetime: t.NewLifetimeVariable(pk.Universe)}
	default:
		return ParameterInferenceVariable{Kind: ir.KindTy, Ty: t.NewVariable(pk.Universe)}
	}
}

// TyVars lists type variables in creation order
func (t *InferenceTable) TyVars() []TyInferenceVariable {
	return slices.Clone(t.tyVars)
}

// LifetimeVars lists lifetime variables in creation order
func (t *InferenceTable) LifetimeVars() []LifetimeInferenceVariable {
	return slices.Clone(t.lifetimeVars)
}

// NewUniverse creates a universe that can see every existing one
func (t *InferenceTable) NewUniverse() ir.UniverseIndex {
	t.maxUniverse = t.maxUniverse.Next()
	t.logger.Debug("new universe", "universe", t.maxUniverse)
	return t.maxUniverse
}

func (t *InferenceTable) MaxUniverse() ir.UniverseIndex {
	return t.maxUniverse
}

func (t *InferenceTable) Snapshot() InferenceSnapshot {
	return InferenceSnapshot{
		tyUnifySnapshot:       t.tyUnify.Snapshot(),
		lifetimeUnifySnapshot: t.lifetimeUnify.Snapshot(),
		tyVars:                len(t.tyVars),
		lifetimeVars:          len(t.lifetimeVars),
		maxUniverse:           t.maxUniverse,
	}
}

// RollbackTo restores t to the state it had when s was taken, including dropping
// every variable and universe created since
func (t *InferenceTable) RollbackTo(s InferenceSnapshot) {
	t.tyUnify.RollbackTo(s.tyUnifySnapshot)
	t.lifetimeUnify.RollbackTo(s.lifetimeUnifySnapshot)
	t.tyVars = t.tyVars[:s.tyVars]
	t.lifetimeVars = t.lifetimeVars[:s.lifetimeVars]
	t.maxUniverse = s.maxUniverse
	recordRollback()
}

// Commit keeps all changes made since s was taken
func (t *InferenceTable) Commit(s InferenceSnapshot) {
	t.tyUnify.Commit(s.tyUnifySnapshot)
	t.lifetimeUnify.Commit(s.lifetimeUnifySnapshot)
	recordCommit()
}

// CommitIfOK runs op in a snapshot, committing it if op succeeds and rolling it back
// otherwise, so a failed op leaves no trace in t. A panic in op also rolls back before
// it propagates.
func CommitIfOK[R any](t *InferenceTable, op func(t *InferenceTable) (R, error)) (result R, err error) {
	snapshot := t.Snapshot()
	done := false
	defer func() {
		if !done {
			t.logger.Debug("rolling back after panic")
			t.RollbackTo(snapshot)
		}
	}()
	result, err = op(t)
	done = true
	if err != nil {
		t.logger.Debug("rolling back failed attempt", "err", err)
		t.RollbackTo(snapshot)
		var zero R
		return zero, err
	}
	t.Commit(snapshot)
	return result, nil
}

// NormalizeShallow returns the value leaf is bound to if leaf is a bound inference
// variable. binders is the number of binders leaf appears under; the result is shifted
// so it can appear under them too.
func (t *InferenceTable) NormalizeShallow(leaf ir.Ty, binders int) (ir.Ty, bool) {
	v, ok := leaf.(ir.TyVar)
	if !ok || v.Depth < binders {
		return nil, false
	}
	value := t.tyUnify.ProbeValue(TyVarFromDepth(v.Depth - binders))
	if !value.IsBound() {
		return nil, false
	}
	return ir.UpShift(value.Value, binders), true
}

// NormalizeLifetime is the lifetime counterpart of NormalizeShallow
func (t *InferenceTable) NormalizeLifetime(leaf ir.Lifetime, binders int) (ir.Lifetime, bool) {
	v, ok := leaf.(ir.LifetimeVar)
	if !ok || v.Depth < binders {
		return nil, false
	}
	value := t.lifetimeUnify.ProbeValue(LifetimeVarFromDepth(v.Depth - binders))
	if !value.IsBound() {
		return nil, false
	}
	return ir.UpShift(value.Value, binders), true
}

// ProbeVar returns what v is bound to. The result is valid under no binders.
func (t *InferenceTable) ProbeVar(v TyInferenceVariable) (ir.Ty, bool) {
	value := t.tyUnify.ProbeValue(v)
	return value.Value, value.IsBound()
}

func (t *InferenceTable) ProbeLifetimeVar(v LifetimeInferenceVariable) (ir.Lifetime, bool) {
	value := t.lifetimeUnify.ProbeValue(v)
	return value.Value, value.IsBound()
}

// UniverseOfUnbound returns the universe of v, or false if v is bound
func (t *InferenceTable) UniverseOfUnbound(v TyInferenceVariable) (ir.UniverseIndex, bool) {
	value := t.tyUnify.ProbeValue(v)
	return value.Universe, !value.IsBound()
}

func (t *InferenceTable) LifetimeUniverseOfUnbound(v LifetimeInferenceVariable) (ir.UniverseIndex, bool) {
	value := t.lifetimeUnify.ProbeValue(v)
	return value.Universe, !value.IsBound()
}

// Root returns the representative variable v has been unified with
func (t *InferenceTable) Root(v TyInferenceVariable) TyInferenceVariable {
	return t.tyUnify.Find(v)
}

func (t *InferenceTable) LifetimeRoot(v LifetimeInferenceVariable) LifetimeInferenceVariable {
	return t.lifetimeUnify.Find(v)
}
