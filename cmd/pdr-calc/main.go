// Command pdr-calc rates a single report from the command line.
//
//	pdr-calc -db reference.db report.json
//	cat report.json | pdr-calc -dataset tables.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/logging"
	"github.com/pdr-rating-server/internal/refdata"
	"github.com/pdr-rating-server/internal/service"
	"github.com/pdr-rating-server/internal/setup"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pdr-calc: %v\n", err)
		os.Exit(exitCode(err))
	}
}

type options struct {
	dbPath    string
	dataset   string
	seed      string
	match     string
	ageSource string
	compact   bool
	logLevel  string
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}
	fs := flag.NewFlagSet("pdr-calc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dbPath, "db", "", "SQLite reference database")
	fs.StringVar(&opts.dataset, "dataset", "", "JSON reference dataset served from memory instead of -db")
	fs.StringVar(&opts.seed, "seed", "", "JSON reference dataset loaded into -db before calculating")
	fs.StringVar(&opts.match, "match", string(domain.MatchSubstring), "occupation match mode: substring or exact")
	fs.StringVar(&opts.ageSource, "age-source", string(domain.AgeSourceTable), "age adjustment source: table or bands")
	fs.BoolVar(&opts.compact, "compact", false, "print compact JSON")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if !domain.OccupationMatchMode(opts.match).IsValid() {
		return nil, nil, fmt.Errorf("invalid -match %q", opts.match)
	}
	if !domain.AgeAdjustmentSource(opts.ageSource).IsValid() {
		return nil, nil, fmt.Errorf("invalid -age-source %q", opts.ageSource)
	}
	if (opts.dbPath == "") == (opts.dataset == "") {
		return nil, nil, errors.New("exactly one of -db or -dataset is required")
	}
	if opts.seed != "" && opts.dbPath == "" {
		return nil, nil, errors.New("-seed requires -db")
	}
	return opts, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger, err := logging.New(domain.LoggingConfig{Level: opts.logLevel, Format: "text", Output: "stderr"})
	if err != nil {
		return err
	}
	logger.SetOutput(stderr)

	store, err := openStore(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	input, err := readInput(rest, stdin)
	if err != nil {
		return err
	}

	calc := service.NewCalculator(store, domain.RatingConfig{
		OccupationMatch:     domain.OccupationMatchMode(opts.match),
		AgeAdjustmentSource: domain.AgeAdjustmentSource(opts.ageSource),
	}, logger)

	result, err := calc.CalculateRating(ctx, input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if !opts.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func openStore(ctx context.Context, opts *options, logger *logrus.Logger) (refdata.Store, error) {
	if opts.dataset != "" {
		ds, err := setup.ReadDatasetFile(opts.dataset)
		if err != nil {
			return nil, err
		}
		return refdata.NewDatasetStore(ds), nil
	}

	store, err := refdata.NewSQLiteStore(opts.dbPath, logger)
	if err != nil {
		return nil, err
	}
	if opts.seed != "" {
		ds, err := setup.ReadDatasetFile(opts.seed)
		if err == nil {
			err = setup.CheckDataset(ds, logger)
		}
		if err == nil {
			err = store.Load(ctx, ds)
		}
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("seeding %s: %w", opts.dbPath, err)
		}
	}
	return store, nil
}

func readInput(args []string, stdin io.Reader) (*domain.RatingInput, error) {
	r := stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var input domain.RatingInput
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, domain.NewValidationError("input", fmt.Sprintf("decoding rating input: %v", err), nil)
	}
	return &input, nil
}

// exitCode separates bad input (2) from missing reference data (3) and
// everything else (1).
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return 2
	case errors.Is(err, domain.ErrReferenceDataNotFound):
		return 3
	default:
		return 1
	}
}
