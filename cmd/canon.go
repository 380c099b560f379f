package cmd

import (
	"fmt"
	"log/slog"

	"github.com/cottand/ilesolve/internal/log"
	"github.com/cottand/ilesolve/ir"
	"github.com/cottand/ilesolve/solve/cache"
	"github.com/cottand/ilesolve/solve/infer"
	"github.com/spf13/cobra"
)

var CanonCmd = &cobra.Command{
	Use:          "canon TERM",
	Short:        "Print the canonical form of a term and its query cache key",
	RunE:         runCanon,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var (
	canonLogLevel *int
	canonUniverse *uint32
)

func init() {
	canonLogLevel = CanonCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
	canonUniverse = CanonCmd.Flags().Uint32P("universe", "u", 0, "universe of the variables of TERM")
}

func runCanon(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*canonLogLevel))

	term, err := ir.ParseParameter(args[0])
	if err != nil {
		return fmt.Errorf("could not parse term: %w", err)
	}

	table := infer.NewInferenceTable()
	ui := ir.UniverseIndex(*canonUniverse)
	for table.MaxUniverse() < ui {
		table.NewUniverse()
	}
	bounds := &varBounds{}
	ir.MustFold(term, bounds, 0)
	for range bounds.tys {
		table.NewVariable(ui)
	}
	for range bounds.lifetimes {
		table.NewLifetimeVariable(ui)
	}

	canonical := infer.Canonicalize(table, term)
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "canonical: %s\n", canonical.Quantified)
	for i, fv := range canonical.FreeVars {
		_, _ = fmt.Fprintf(out, "  %d: %s\n", i, fv)
	}
	_, _ = fmt.Fprintf(out, "key: %s\n", cache.KeyOf(canonical))
	return nil
}
