package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/cottand/ilesolve/internal/log"
	"github.com/cottand/ilesolve/solve/cache"
	"github.com/cottand/ilesolve/solve/infer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"
)

var SolveCmd = &cobra.Command{
	Use:          "solve problems.yaml...",
	Short:        "Run inference problems, one table per problem",
	RunE:         runSolve,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var (
	solveLogLevel  *int
	solveJobs      *int
	solveCacheSize *int
	solveStats     *bool
)

func init() {
	solveLogLevel = SolveCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
	solveJobs = SolveCmd.Flags().IntP("jobs", "j", runtime.GOMAXPROCS(0), "files solved in parallel")
	solveCacheSize = SolveCmd.Flags().Int("cache-size", 1024, "canonical queries kept in the query cache")
	solveStats = SolveCmd.Flags().Bool("stats", false, "print query cache and inference table counters")
}

func runSolve(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*solveLogLevel))

	registry := prometheus.NewRegistry()
	queries, err := cache.New[QueryAnswer]("solve", *solveCacheSize, registry)
	if err != nil {
		return err
	}
	if *solveStats {
		provider, err := exportTableMetrics(registry)
		if err != nil {
			return err
		}
		defer func() { _ = provider.Shutdown(cmd.Context()) }()
	}

	reports := make([][]Report, len(args))
	group, ctx := errgroup.WithContext(cmd.Context())
	group.SetLimit(max(*solveJobs, 1))
	for i, path := range args {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fileReports, err := solveFile(path, queries)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = fileReports
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, fileReports := range reports {
		for _, report := range fileReports {
			_, _ = fmt.Fprintln(out, report)
		}
	}
	if *solveStats {
		return printStats(cmd, registry)
	}
	return nil
}

func solveFile(path string, queries *cache.Cache[QueryAnswer]) ([]Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open problem file: %w", err)
	}
	defer f.Close()

	problems, err := ParseProblems(f)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(problems))
	for _, problem := range problems {
		report, err := problem.Run(queries)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// exportTableMetrics makes the inference table counters visible through registry
func exportTableMetrics(registry *prometheus.Registry) (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithoutTargetInfo(),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create metrics exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	if err := infer.SetMeterProvider(provider); err != nil {
		return nil, fmt.Errorf("could not install inference table metrics: %w", err)
	}
	return provider, nil
}

func printStats(cmd *cobra.Command, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("could not gather metrics: %w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
			}
			name := family.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", name, metric.GetCounter().GetValue())
		}
	}
	return nil
}
