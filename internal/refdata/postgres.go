package refdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
)

// PostgresStore implements Store on the PostgreSQL reference schema created by
// the migrations package. Table order for substring matches is the id column.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a store on an existing pool
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: logger,
	}
}

// FindOccupationGroup resolves a title to its group number
func (s *PostgresStore) FindOccupationGroup(ctx context.Context, title string, mode domain.OccupationMatchMode) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, domain.NewLookupError(domain.TableOccupations, title)
	}

	var group int
	if mode == domain.MatchExact {
		err := s.db.QueryRow(ctx,
			"SELECT group_number FROM occupations WHERE LOWER(occupation_title) = LOWER($1) ORDER BY id LIMIT 1",
			title,
		).Scan(&group)
		if err == nil {
			return group, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, s.queryError("occupation", err, logrus.Fields{"title": title})
		}
	}

	err := s.db.QueryRow(ctx,
		`SELECT group_number FROM occupations WHERE LOWER(occupation_title) LIKE $1 ESCAPE '\' ORDER BY id LIMIT 1`,
		likePattern(title),
	).Scan(&group)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.NewLookupError(domain.TableOccupations, title)
	}
	if err != nil {
		return 0, s.queryError("occupation", err, logrus.Fields{"title": title})
	}
	return group, nil
}

// FindVariant returns the variant letter for the (body part, group, code) row
func (s *PostgresStore) FindVariant(ctx context.Context, bodyPart string, group int, impairmentCode string) (domain.Variant, error) {
	var raw string
	err := s.db.QueryRow(ctx,
		"SELECT variant FROM variants WHERE body_part = $1 AND occupational_group = $2 AND impairment_code = $3 ORDER BY id LIMIT 1",
		bodyPart, group, impairmentCode,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.NewLookupError(domain.TableVariants, variantKey(bodyPart, group, impairmentCode))
	}
	if err != nil {
		return "", s.queryError("variant", err, logrus.Fields{"body_part": bodyPart, "group": group})
	}
	return domain.ParseVariant(raw)
}

// FindImpairmentDescription returns the description row for code
func (s *PostgresStore) FindImpairmentDescription(ctx context.Context, code string) (*domain.ImpairmentDescription, error) {
	d := &domain.ImpairmentDescription{}
	err := s.db.QueryRow(ctx,
		"SELECT code, section, title, description FROM bodypart_impairments WHERE code = $1 ORDER BY id LIMIT 1",
		code,
	).Scan(&d.Code, &d.Section, &d.Title, &d.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewLookupError(domain.TableImpairments, code)
	}
	if err != nil {
		return nil, s.queryError("impairment description", err, logrus.Fields{"code": code})
	}
	return d, nil
}

// FindAgeAdjustmentFactor reads the bracket's column for the rounded WPI row.
// NUMERIC values are read as text so no precision is lost.
func (s *PostgresStore) FindAgeAdjustmentFactor(ctx context.Context, bracket domain.AgeBracket, wpiRounded int) (decimal.Decimal, error) {
	col, err := bracket.Column()
	if err != nil {
		return decimal.Zero, err
	}

	var raw string
	err = s.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s::text FROM age_adjustments WHERE wpi_percent = $1", col),
		wpiRounded,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.NewLookupError(domain.TableAgeAdjustment, ageKey(bracket, wpiRounded))
	}
	if err != nil {
		return decimal.Zero, s.queryError("age adjustment", err, logrus.Fields{"bracket": bracket.String(), "wpi": wpiRounded})
	}

	factor, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: age factor %q", domain.ErrInvalidReferenceData, raw)
	}
	return factor, nil
}

// Load replaces the contents of every reference table with data in one
// transaction
func (s *PostgresStore) Load(ctx context.Context, data *Dataset) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range referenceTables {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, o := range data.Occupations {
		if _, err := tx.Exec(ctx,
			"INSERT INTO occupations (group_number, occupation_title, industry) VALUES ($1, $2, $3)",
			o.GroupNumber, o.OccupationTitle, o.Industry,
		); err != nil {
			return fmt.Errorf("inserting occupation %q: %w", o.OccupationTitle, err)
		}
	}

	for _, v := range data.Variants {
		if _, err := tx.Exec(ctx,
			"INSERT INTO variants (body_part, occupational_group, impairment_code, variant) VALUES ($1, $2, $3, $4)",
			v.BodyPart, v.OccupationalGroup, v.ImpairmentCode, string(v.Variant),
		); err != nil {
			return fmt.Errorf("inserting variant for group %d: %w", v.OccupationalGroup, err)
		}
	}

	for _, d := range data.Impairments {
		if _, err := tx.Exec(ctx,
			"INSERT INTO bodypart_impairments (section, title, code, description) VALUES ($1, $2, $3, $4)",
			d.Section, d.Title, d.Code, d.Description,
		); err != nil {
			return fmt.Errorf("inserting impairment %q: %w", d.Code, err)
		}
	}

	cols := ageColumns()
	placeholders := make([]string, 0, len(cols))
	updates := make([]string, 0, len(cols))
	for i, col := range cols {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	insertAge := fmt.Sprintf(
		"INSERT INTO age_adjustments (wpi_percent, %s) VALUES ($1, %s) ON CONFLICT (wpi_percent) DO UPDATE SET %s",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "),
	)
	for _, a := range data.AgeAdjustments {
		args := []interface{}{a.WPIPercent}
		for _, b := range domain.AgeBrackets {
			args = append(args, a.Factors[b])
		}
		if _, err := tx.Exec(ctx, insertAge, args...); err != nil {
			return fmt.Errorf("inserting age adjustment row %d: %w", a.WPIPercent, err)
		}
	}

	return tx.Commit(ctx)
}

// Ping checks the pool
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close is a no-op; the pool is owned by database.DB
func (s *PostgresStore) Close() error {
	return nil
}

func (s *PostgresStore) queryError(what string, err error, fields logrus.Fields) error {
	s.log.WithFields(fields).WithError(err).Error("Reference lookup failed")
	return fmt.Errorf("querying %s: %w", what, err)
}
