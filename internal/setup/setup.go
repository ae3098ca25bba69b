// Package setup implements the data management commands of the lite server:
// seeding the reference database and reporting on local state.
package setup

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/config"
	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/history"
	"github.com/pdr-rating-server/internal/refdata"
	"github.com/pdr-rating-server/internal/service"
)

// Status describes the local data directory
type Status struct {
	DataDir          string
	DataDirExists    bool
	ReferenceDB      string
	ReferenceExists  bool
	ReferenceHealthy bool
	HistoryDB        string
	HistoryEnabled   bool
	HistoryEntries   int64
}

// GetStatus inspects the files named by cfg without creating any of them.
func GetStatus(ctx context.Context, cfg *config.LiteConfig, logger *logrus.Logger) (*Status, error) {
	status := &Status{
		DataDir:        cfg.DataDir,
		ReferenceDB:    cfg.ReferenceDBPath(),
		HistoryDB:      cfg.HistoryDBPath(),
		HistoryEnabled: cfg.HistoryEnable,
	}

	status.DataDirExists = exists(status.DataDir)
	status.ReferenceExists = exists(status.ReferenceDB)

	if status.ReferenceExists {
		store, err := refdata.NewSQLiteStore(status.ReferenceDB, logger)
		if err != nil {
			return nil, fmt.Errorf("opening reference database: %w", err)
		}
		status.ReferenceHealthy = store.Ping(ctx) == nil
		store.Close()
	}

	if exists(status.HistoryDB) {
		store, err := history.NewSQLiteStore(status.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("opening history database: %w", err)
		}
		defer store.Close()
		if status.HistoryEntries, err = store.Count(ctx); err != nil {
			return nil, err
		}
	}

	return status, nil
}

// ReadDatasetFile decodes a reference dataset from path
func ReadDatasetFile(path string) (*refdata.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return refdata.ReadDataset(f)
}

// Seed loads the dataset at path into the lite reference database
func Seed(ctx context.Context, cfg *config.LiteConfig, path string, logger *logrus.Logger) (*refdata.Dataset, error) {
	ds, err := ReadDatasetFile(path)
	if err != nil {
		return nil, err
	}
	if err := CheckDataset(ds, logger); err != nil {
		return nil, err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store, err := refdata.NewSQLiteStore(cfg.ReferenceDBPath(), logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.Load(ctx, ds); err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"path":            store.Path(),
		"occupations":     len(ds.Occupations),
		"variants":        len(ds.Variants),
		"impairments":     len(ds.Impairments),
		"age_adjustments": len(ds.AgeAdjustments),
	}).Info("Reference data loaded")

	return ds, nil
}

// ErrInvalidDataset is returned when a dataset has blocking issues
var ErrInvalidDataset = errors.New("invalid reference dataset")

// Issue is one problem found in a dataset. Blocking issues make lookups fail
// or answer ambiguously; the rest are unreachable or clamped rows.
type Issue struct {
	Message  string
	Blocking bool
}

func (i Issue) String() string {
	if i.Blocking {
		return "error: " + i.Message
	}
	return "warning: " + i.Message
}

// CheckDataset logs every issue in ds and fails with ErrInvalidDataset when
// any of them is blocking.
func CheckDataset(ds *refdata.Dataset, logger *logrus.Logger) error {
	blocking := 0
	for _, issue := range ValidateDataset(ds) {
		entry := logger.WithField("issue", issue.Message)
		if issue.Blocking {
			blocking++
			entry.Error("Reference dataset issue")
		} else {
			entry.Warn("Reference dataset issue")
		}
	}
	if blocking > 0 {
		return fmt.Errorf("%w: %d blocking issue(s)", ErrInvalidDataset, blocking)
	}
	return nil
}

// ValidateDataset reports rows that would make lookups fail or surprise.
// An empty result means the dataset is consistent.
func ValidateDataset(ds *refdata.Dataset) []Issue {
	var issues []Issue
	warn := func(format string, args ...any) {
		issues = append(issues, Issue{Message: fmt.Sprintf(format, args...)})
	}
	fail := func(format string, args ...any) {
		issues = append(issues, Issue{Message: fmt.Sprintf(format, args...), Blocking: true})
	}

	groups := make(map[int]bool, len(ds.Occupations))
	for _, o := range ds.Occupations {
		groups[o.GroupNumber] = true
	}

	withDefault := make(map[int]bool)
	for _, v := range ds.Variants {
		if !groups[v.OccupationalGroup] {
			warn("variant for unknown occupational group %d", v.OccupationalGroup)
		}
		if v.BodyPart == refdata.DefaultBodyPart && v.ImpairmentCode == refdata.DefaultImpairmentCode {
			withDefault[v.OccupationalGroup] = true
		}
	}
	reported := make(map[int]bool)
	for _, o := range ds.Occupations {
		if !withDefault[o.GroupNumber] && !reported[o.GroupNumber] {
			reported[o.GroupNumber] = true
			fail("occupational group %d has no default variant", o.GroupNumber)
		}
	}

	codes := make(map[string]bool, len(ds.Impairments))
	for _, d := range ds.Impairments {
		if codes[d.Code] {
			fail("duplicate impairment code %s", d.Code)
		}
		codes[d.Code] = true
	}

	for _, a := range ds.AgeAdjustments {
		if a.WPIPercent < 0 || a.WPIPercent > 100 {
			warn("age adjustment row for wpi %d is out of range", a.WPIPercent)
		}
		for _, bracket := range domain.AgeBrackets {
			factor, ok := a.Factors[bracket]
			if !ok {
				continue
			}
			f := decimal.NewFromFloat(factor)
			if !service.ClampAgeAdjustment(f).Equal(f) {
				warn("age adjustment %v for wpi %d bracket %s will be clamped", factor, a.WPIPercent, bracket)
			}
		}
	}

	return issues
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
