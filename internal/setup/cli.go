package setup

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/config"
)

// CLI provides command-line interface for setup operations.
type CLI struct {
	config *config.LiteConfig
	out    io.Writer
	logger *logrus.Logger
}

// NewCLI creates a new setup CLI instance.
func NewCLI(cfg *config.LiteConfig, out io.Writer, logger *logrus.Logger) *CLI {
	return &CLI{config: cfg, out: out, logger: logger}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "seed":
		if len(args) < 2 {
			return fmt.Errorf("seed requires a dataset file")
		}
		return c.seed(ctx, args[1])
	case "validate":
		if len(args) < 2 {
			return fmt.Errorf("validate requires a dataset file")
		}
		return c.validate(args[1])
	case "status":
		return c.showStatus(ctx)
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

func (c *CLI) showHelp() error {
	help := `
PDR Rating Server Setup

Usage:
  server-lite setup <command> [options]

Commands:
  seed <dataset.json>      Load reference tables into the local database
  validate <dataset.json>  Check a reference dataset without loading it
  status                   Show the data directory and database state

Environment:
  PDR_DATA_DIR             Data directory (default ~/.pdr-rating)
  PDR_REFERENCE_DB         Reference database file
`
	fmt.Fprintln(c.out, help)
	return nil
}

func (c *CLI) seed(ctx context.Context, path string) error {
	ds, err := Seed(ctx, c.config, path, c.logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Loaded %s into %s\n", path, c.config.ReferenceDBPath())
	fmt.Fprintf(c.out, "  Occupations:     %d\n", len(ds.Occupations))
	fmt.Fprintf(c.out, "  Variants:        %d\n", len(ds.Variants))
	fmt.Fprintf(c.out, "  Impairments:     %d\n", len(ds.Impairments))
	fmt.Fprintf(c.out, "  Age adjustments: %d\n", len(ds.AgeAdjustments))
	return nil
}

func (c *CLI) validate(path string) error {
	ds, err := ReadDatasetFile(path)
	if err != nil {
		return err
	}

	issues := ValidateDataset(ds)
	if len(issues) == 0 {
		fmt.Fprintln(c.out, "✓ Dataset is consistent")
		return nil
	}

	blocking := 0
	fmt.Fprintf(c.out, "Found %d issue(s):\n", len(issues))
	for _, issue := range issues {
		if issue.Blocking {
			blocking++
		}
		fmt.Fprintf(c.out, "  - %s\n", issue)
	}
	if blocking > 0 {
		return fmt.Errorf("%w: %d blocking issue(s)", ErrInvalidDataset, blocking)
	}
	fmt.Fprintln(c.out, "Warnings only; the dataset can be seeded")
	return nil
}

func (c *CLI) showStatus(ctx context.Context) error {
	status, err := GetStatus(ctx, c.config, c.logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "PDR Rating Server Status")
	fmt.Fprintln(c.out, "========================")
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Data Directory:")
	fmt.Fprintf(c.out, "  Path: %s\n", status.DataDir)
	fmt.Fprintf(c.out, "  Status: %s\n", mark(status.DataDirExists, "Exists", "Not created yet"))
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Reference Data:")
	fmt.Fprintf(c.out, "  Path: %s\n", status.ReferenceDB)
	switch {
	case !status.ReferenceExists:
		fmt.Fprintln(c.out, "  Status: ✗ Missing (run: server-lite setup seed <dataset.json>)")
	case !status.ReferenceHealthy:
		fmt.Fprintln(c.out, "  Status: ✗ Unreadable")
	default:
		fmt.Fprintln(c.out, "  Status: ✓ Ready")
	}
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "History:")
	fmt.Fprintf(c.out, "  Enabled: %t\n", status.HistoryEnabled)
	fmt.Fprintf(c.out, "  Path: %s\n", status.HistoryDB)
	fmt.Fprintf(c.out, "  Entries: %d\n", status.HistoryEntries)

	return nil
}

func mark(ok bool, yes, no string) string {
	if ok {
		return "✓ " + yes
	}
	return "✗ " + no
}
