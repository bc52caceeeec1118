package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/plantops/utilbalance/pkg/cli/output"
	"github.com/plantops/utilbalance/pkg/config"
	"github.com/plantops/utilbalance/pkg/norms"
	csvrepo "github.com/plantops/utilbalance/pkg/repositories/csv"
	"github.com/plantops/utilbalance/pkg/repositories/postgres"
	"github.com/plantops/utilbalance/pkg/services"
)

// Config holds the command-line configuration.
type Config struct {
	ConfigFile string
	Format     string
	Verbose    bool
	Help       bool
}

// BalanceCommand loads a snapshot, resolves the configured periods and
// writes the reports.
type BalanceCommand struct {
	config Config
	out    io.Writer
}

// NewBalanceCommand creates the command. Reports are written to out.
func NewBalanceCommand(cfg Config, out io.Writer) *BalanceCommand {
	return &BalanceCommand{config: cfg, out: out}
}

// Execute runs the command.
func (c *BalanceCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}
	if c.config.ConfigFile == "" {
		return fmt.Errorf("a run specification is required (-config)")
	}

	runSpec, err := config.Load(c.config.ConfigFile)
	if err != nil {
		return err
	}
	format := runSpec.Format
	if c.config.Format != "" {
		format = c.config.Format
	}

	source, cleanup, err := c.openSource(ctx, runSpec)
	if err != nil {
		return err
	}
	defer cleanup()

	snap, err := source.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if c.config.Verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d utilities, %d norms, %d assets\n",
			len(snap.Utilities), len(snap.Edges), len(snap.Assets))
	}

	graph, err := norms.NewNormsGraph(snap.Utilities, snap.Edges)
	if err != nil {
		return err
	}
	refs, err := runSpec.ResolveReferences(graph)
	if err != nil {
		return err
	}

	service := services.NewBalanceService(services.Options{
		Resolve:    runSpec.ResolveOptions(),
		Workers:    runSpec.Workers,
		References: refs,
	})

	periods := runSpec.PeriodIDs()
	reports, resolveErr := service.ResolvePeriods(ctx, snap, periods)

	// Emit whatever resolved before reporting failures: a single divergent
	// period must not suppress the other months' reports.
	if err := output.Write(c.out, reports, format); err != nil {
		return err
	}
	if resolveErr != nil {
		return resolveErr
	}

	if c.config.Verbose {
		fmt.Fprintf(os.Stderr, "Resolved %d period(s)\n", len(periods))
	}
	return nil
}

// openSource builds the snapshot source the run specification selects.
func (c *BalanceCommand) openSource(ctx context.Context, runSpec *config.Config) (services.SnapshotSource, func(), error) {
	switch runSpec.Source.Kind {
	case "csv":
		return csvrepo.NewLoader(runSpec.Source.Dir), func() {}, nil
	case "postgres":
		store, err := postgres.NewStore(ctx, runSpec.Source.DSN, runSpec.PeriodIDs())
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source kind: %s", runSpec.Source.Kind)
	}
}

func (c *BalanceCommand) showHelp() {
	fmt.Fprintln(c.out, `utilbalance - utility norms balance and requirement resolution

Usage:
  utilbalance -config run.yaml [-format text|json|csv] [-verbose]

The run specification selects the snapshot source (a CSV directory or a
postgres DSN), the periods to resolve, the convergence tolerance and
iteration cap, and optional reference norms for deviation reporting.`)
}
