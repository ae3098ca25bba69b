package refdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pdr-rating-server/internal/domain"
)

// SQLiteStore implements Store on a local SQLite file
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
}

// NewSQLiteStore opens the reference database at dbPath, creating the file
// and schema if they don't exist.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createReferenceSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		log:    logger,
	}, nil
}

func createReferenceSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS occupations (
		group_number INTEGER NOT NULL,
		occupation_title TEXT NOT NULL,
		industry TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS variants (
		body_part TEXT NOT NULL,
		occupational_group INTEGER NOT NULL,
		impairment_code TEXT NOT NULL,
		variant TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bodypart_impairments (
		section TEXT DEFAULT '',
		title TEXT DEFAULT '',
		code TEXT NOT NULL,
		description TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS age_adjustments (
		wpi_percent INTEGER PRIMARY KEY,
		age_21_and_under REAL NOT NULL,
		age_22_to_26 REAL NOT NULL,
		age_27_to_31 REAL NOT NULL,
		age_32_to_36 REAL NOT NULL,
		age_37_to_41 REAL NOT NULL,
		age_42_to_46 REAL NOT NULL,
		age_47_to_51 REAL NOT NULL,
		age_52_to_56 REAL NOT NULL,
		age_57_to_61 REAL NOT NULL,
		age_62_and_over REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_variants_lookup ON variants(body_part, occupational_group, impairment_code);
	CREATE INDEX IF NOT EXISTS idx_bodypart_impairments_code ON bodypart_impairments(code);
	`

	_, err := db.Exec(schema)
	return err
}

// FindOccupationGroup resolves a title to its group number. Substring matches
// return the first row in insertion order.
func (s *SQLiteStore) FindOccupationGroup(ctx context.Context, title string, mode domain.OccupationMatchMode) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, domain.NewLookupError(domain.TableOccupations, title)
	}

	var group int
	if mode == domain.MatchExact {
		err := s.db.QueryRowContext(ctx,
			"SELECT group_number FROM occupations WHERE LOWER(occupation_title) = LOWER(?) ORDER BY rowid LIMIT 1",
			title,
		).Scan(&group)
		if err == nil {
			return group, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, s.queryError("occupation", err, logrus.Fields{"title": title})
		}
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT group_number FROM occupations WHERE LOWER(occupation_title) LIKE ? ESCAPE '\' ORDER BY rowid LIMIT 1`,
		likePattern(title),
	).Scan(&group)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NewLookupError(domain.TableOccupations, title)
	}
	if err != nil {
		return 0, s.queryError("occupation", err, logrus.Fields{"title": title})
	}
	return group, nil
}

// FindVariant returns the variant letter for the (body part, group, code) row
func (s *SQLiteStore) FindVariant(ctx context.Context, bodyPart string, group int, impairmentCode string) (domain.Variant, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT variant FROM variants WHERE body_part = ? AND occupational_group = ? AND impairment_code = ? LIMIT 1",
		bodyPart, group, impairmentCode,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.NewLookupError(domain.TableVariants, variantKey(bodyPart, group, impairmentCode))
	}
	if err != nil {
		return "", s.queryError("variant", err, logrus.Fields{"body_part": bodyPart, "group": group})
	}
	return domain.ParseVariant(raw)
}

// FindImpairmentDescription returns the description row for code
func (s *SQLiteStore) FindImpairmentDescription(ctx context.Context, code string) (*domain.ImpairmentDescription, error) {
	d := &domain.ImpairmentDescription{}
	err := s.db.QueryRowContext(ctx,
		"SELECT code, COALESCE(section, ''), COALESCE(title, ''), COALESCE(description, '') FROM bodypart_impairments WHERE code = ? LIMIT 1",
		code,
	).Scan(&d.Code, &d.Section, &d.Title, &d.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewLookupError(domain.TableImpairments, code)
	}
	if err != nil {
		return nil, s.queryError("impairment description", err, logrus.Fields{"code": code})
	}
	return d, nil
}

// FindAgeAdjustmentFactor reads the bracket's column for the rounded WPI row
func (s *SQLiteStore) FindAgeAdjustmentFactor(ctx context.Context, bracket domain.AgeBracket, wpiRounded int) (decimal.Decimal, error) {
	col, err := bracket.Column()
	if err != nil {
		return decimal.Zero, err
	}

	var factor float64
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM age_adjustments WHERE wpi_percent = ?", col),
		wpiRounded,
	).Scan(&factor)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.NewLookupError(domain.TableAgeAdjustment, ageKey(bracket, wpiRounded))
	}
	if err != nil {
		return decimal.Zero, s.queryError("age adjustment", err, logrus.Fields{"bracket": bracket.String(), "wpi": wpiRounded})
	}
	return decimal.NewFromFloat(factor), nil
}

// Load replaces the contents of every reference table with data in one
// transaction
func (s *SQLiteStore) Load(ctx context.Context, data *Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range referenceTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, o := range data.Occupations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO occupations (group_number, occupation_title, industry) VALUES (?, ?, ?)",
			o.GroupNumber, o.OccupationTitle, o.Industry,
		); err != nil {
			return fmt.Errorf("failed to insert occupation %q: %w", o.OccupationTitle, err)
		}
	}

	for _, v := range data.Variants {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO variants (body_part, occupational_group, impairment_code, variant) VALUES (?, ?, ?, ?)",
			v.BodyPart, v.OccupationalGroup, v.ImpairmentCode, string(v.Variant),
		); err != nil {
			return fmt.Errorf("failed to insert variant for group %d: %w", v.OccupationalGroup, err)
		}
	}

	for _, d := range data.Impairments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO bodypart_impairments (section, title, code, description) VALUES (?, ?, ?, ?)",
			d.Section, d.Title, d.Code, d.Description,
		); err != nil {
			return fmt.Errorf("failed to insert impairment %q: %w", d.Code, err)
		}
	}

	insertAge := fmt.Sprintf(
		"INSERT OR REPLACE INTO age_adjustments (wpi_percent, %s) VALUES (?%s)",
		strings.Join(ageColumns(), ", "),
		strings.Repeat(", ?", len(domain.AgeBrackets)),
	)
	for _, a := range data.AgeAdjustments {
		args := []interface{}{a.WPIPercent}
		for _, b := range domain.AgeBrackets {
			args = append(args, a.Factors[b])
		}
		if _, err := tx.ExecContext(ctx, insertAge, args...); err != nil {
			return fmt.Errorf("failed to insert age adjustment row %d: %w", a.WPIPercent, err)
		}
	}

	return tx.Commit()
}

// Ping checks the database handle
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) queryError(what string, err error, fields logrus.Fields) error {
	s.log.WithFields(fields).WithError(err).Error("Reference lookup failed")
	return fmt.Errorf("querying %s: %w", what, err)
}
