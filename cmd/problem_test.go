package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cottand/ilesolve/solve/cache"
	"github.com/cottand/ilesolve/solve/infer"
	"github.com/cottand/ilesolve/util"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

const problems = `
name: list-of-b
vars: [ty@0, ty@0]
steps:
  - unify: ["?0", "List<?1>"]
  - snapshot: s1
  - unify: ["?1", "Int"]
  - rollback: s1
  - expect-fail: ["?0", "Int"]
show: ["?0", "?1"]
---
name: escape
vars: [ty@1]
steps:
  - new-universe: true
  - expect-fail: ["?0", "!2.0"]
show: ["?0"]
---
name: query
vars: [ty@0, ty@0, lt@0]
steps:
  - query: ["Pair<?0, Ref<'?0, Int>>", "Pair<Vec<?1>, ?1>"]
  - query: ["Iterator::Item<?0>", "Int"]
show: ["?0", "?1"]
---
name: renamed-query
vars: [ty@0, ty@0, ty@0, lt@0, lt@0]
steps:
  - snapshot: outer
  - query: ["Pair<?2, Ref<'?1, Int>>", "Pair<Vec<?0>, ?0>"]
  - commit: outer
show: ["?2"]
`

func newQueryCache(t *testing.T, reg prometheus.Registerer) *cache.Cache[QueryAnswer] {
	queries, err := cache.New[QueryAnswer]("test", 16, reg)
	require.NoError(t, err)
	return queries
}

func TestRunProblems(t *testing.T) {
	parsed, err := ParseProblems(strings.NewReader(problems))
	require.NoError(t, err)
	require.Len(t, parsed, 4)

	reg := prometheus.NewRegistry()
	queries := newQueryCache(t, reg)
	expected := []Report{
		{
			Name: "list-of-b",
			Bindings: []util.Pair[string, string]{
				util.NewPair("?0", "List<?1>"),
				util.NewPair("?1", "?1"),
			},
			Canonical: "exists<ty@0> <List<?0>, ?0>",
		},
		{
			Name:      "escape",
			Bindings:  []util.Pair[string, string]{util.NewPair("?0", "?0")},
			Canonical: "exists<ty@1> <?0>",
		},
		{
			Name: "query",
			Bindings: []util.Pair[string, string]{
				util.NewPair("?0", "Vec<Ref<'?0, Int>>"),
				util.NewPair("?1", "Ref<'?0, Int>"),
			},
			Canonical: "exists<lt@0> <Vec<Ref<'?0, Int>>, Ref<'?0, Int>>",
			Goals:     []string{"Normalize(Iterator::Item<Vec<Ref<'?0, Int>>> -> Int)"},
		},
		{
			Name:      "renamed-query",
			Bindings:  []util.Pair[string, string]{util.NewPair("?2", "Vec<Ref<'?1, Int>>")},
			Canonical: "exists<lt@0> <Vec<Ref<'?0, Int>>>",
		},
	}
	for i, problem := range parsed {
		t.Run(problem.Name, func(t *testing.T) {
			report, err := problem.Run(queries)
			require.NoError(t, err)
			assert.Equal(t, expected[i], report)
		})
	}

	assert.Equal(t, 2, queries.Len())
	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP ilesolve_query_cache_hits_total Canonical queries answered from the cache
# TYPE ilesolve_query_cache_hits_total counter
ilesolve_query_cache_hits_total{cache="test"} 1
`), "ilesolve_query_cache_hits_total")
	assert.NoError(t, err)
}

func TestRunProblemFailures(t *testing.T) {
	testCases := []struct {
		name     string
		problem  Problem
		contains string
		noSol    bool
	}{
		{
			name: "unification fails",
			problem: Problem{Vars: []string{"ty@0"}, Steps: []Step{
				{Unify: []string{"?0", "Vec<?0>"}},
			}},
			contains: "cycle",
			noSol:    true,
		},
		{
			name: "query fails",
			problem: Problem{Vars: []string{"ty@0"}, Steps: []Step{
				{Query: []string{"Vec<?0>", "Option<?0>"}},
			}},
			contains: "head mismatch",
			noSol:    true,
		},
		{
			name: "expected failure unifies",
			problem: Problem{Vars: []string{"ty@0"}, Steps: []Step{
				{ExpectFail: []string{"?0", "Int"}},
			}},
			contains: "not to unify",
		},
		{
			name: "undeclared variable",
			problem: Problem{Vars: []string{"ty@0"}, Steps: []Step{
				{Unify: []string{"?0", "Vec<?3>"}},
			}},
			contains: "refers to ?3",
		},
		{
			name: "undeclared lifetime",
			problem: Problem{Steps: []Step{
				{Unify: []string{"'?0", "'!0.0"}},
			}},
			contains: "refers to '?0",
		},
		{
			name: "type variable bound by for",
			problem: Problem{Vars: []string{"ty@0"}, Steps: []Step{
				{Unify: []string{"for<1> Foo<?0>", "Bar"}},
			}},
			contains: "binds only lifetimes",
		},
		{
			name:     "universe skipped",
			problem:  Problem{Vars: []string{"ty@4294967295"}},
			contains: "skips universes",
		},
		{
			name: "snapshots closed out of order",
			problem: Problem{Steps: []Step{
				{Snapshot: "a"},
				{Snapshot: "b"},
				{Rollback: "a"},
			}},
			contains: `snapshot "b" must be closed before "a"`,
		},
		{
			name: "snapshot left open",
			problem: Problem{Steps: []Step{
				{Snapshot: "a"},
			}},
			contains: "never closed",
		},
		{
			name:     "empty step",
			problem:  Problem{Steps: []Step{{}}},
			contains: "empty step",
		},
		{
			name:     "bad variable kind",
			problem:  Problem{Vars: []string{"int@0"}},
			contains: "unknown parameter kind",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.problem.Name = tc.name
			_, err := tc.problem.Run(newQueryCache(t, nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
			assert.Equal(t, tc.noSol, errors.Is(err, infer.ErrNoSolution))
		})
	}
}

func TestParseProblemsRejectsUnknownFields(t *testing.T) {
	_, err := ParseProblems(strings.NewReader("name: x\nvariables: [ty@0]\n"))
	assert.Error(t, err)
}

func TestSolveCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problems.yaml")
	require.NoError(t, os.WriteFile(path, []byte(problems), 0o644))

	out := &bytes.Buffer{}
	SolveCmd.SetOut(out)
	SolveCmd.SetArgs([]string{path, path})
	require.NoError(t, SolveCmd.Execute())

	assert.Equal(t, 2, strings.Count(out.String(), "== list-of-b\n?0 = List<?1>\n?1 = ?1\ncanonical: exists<ty@0> <List<?0>, ?0>\n"))
	assert.Equal(t, 8, strings.Count(out.String(), "== "))
}

func TestSolveCmdStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problems.yaml")
	require.NoError(t, os.WriteFile(path, []byte(problems), 0o644))
	t.Cleanup(func() {
		require.NoError(t, infer.SetMeterProvider(noop.NewMeterProvider()))
		require.NoError(t, SolveCmd.Flags().Set("stats", "false"))
	})

	out, stats := &bytes.Buffer{}, &bytes.Buffer{}
	SolveCmd.SetOut(out)
	SolveCmd.SetErr(stats)
	SolveCmd.SetArgs([]string{"--stats", "--jobs", "1", path})
	require.NoError(t, SolveCmd.Execute())

	assert.Equal(t, 4, strings.Count(out.String(), "== "))
	assert.Contains(t, stats.String(), `ilesolve_query_cache_hits_total{cache="solve"} 1`+"\n")
	assert.Contains(t, stats.String(), `ilesolve_query_cache_misses_total{cache="solve"} 2`+"\n")
	assert.Contains(t, stats.String(), "ilesolve_infer_commit")
	assert.Contains(t, stats.String(), `kind="head mismatch"`)
}

func TestCanonCmd(t *testing.T) {
	out := &bytes.Buffer{}
	CanonCmd.SetOut(out)
	CanonCmd.SetArgs([]string{"Pair<?2, Ref<'?0, ?2>>"})
	require.NoError(t, CanonCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "canonical: exists<ty@0, lt@0> Pair<?0, Ref<'?1, ?0>>", lines[0])
	assert.Equal(t, "  0: ?2 in U0", lines[1])
	assert.Equal(t, "  1: '?0 in U0", lines[2])
	assert.Regexp(t, `^key: [0-9a-f]{16}$`, lines[3])
}
