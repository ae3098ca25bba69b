// Package history stores completed medical-input calculations so they can be
// listed and re-read later.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdr-rating-server/internal/domain"
)

// Page size limits for List
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Entry is one persisted calculation
type Entry struct {
	ID             uuid.UUID            `json:"id"`
	FileName       string               `json:"file_name"`
	Result         *domain.RatingResult `json:"result_summary"`
	FinalPDPercent float64              `json:"final_pd_percent"`
	Occupation     string               `json:"occupation"`
	Age            int                  `json:"age"`
	CreatedAt      time.Time            `json:"created_at"`
}

// NewEntry builds an entry from a validated input and its result
func NewEntry(fileName string, input *domain.RatingInput, result *domain.RatingResult) (*Entry, error) {
	if input == nil || result == nil {
		return nil, fmt.Errorf("history entry requires input and result")
	}
	age, err := input.Demographics.AgeAtInjury()
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:             uuid.New(),
		FileName:       fileName,
		Result:         result,
		FinalPDPercent: result.FinalPercent(),
		Occupation:     input.Demographics.Occupation.Title,
		Age:            age,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Store defines the interface for history storage operations.
type Store interface {
	// Save persists entry. A zero ID or CreatedAt is filled in.
	Save(ctx context.Context, entry *Entry) error

	// Get returns the entry with id, or an error matching domain.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)

	// List returns entries newest first.
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying database.
	Close() error
}

// NormalizePage clamps paging parameters into range
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func prepare(entry *Entry) ([]byte, error) {
	if entry == nil || entry.Result == nil {
		return nil, fmt.Errorf("history entry requires a result")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return payload, nil
}

func notFound(id uuid.UUID) error {
	return fmt.Errorf("history entry %s: %w", id, domain.ErrNotFound)
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var payload []byte

	if err := s.Scan(&e.ID, &e.FileName, &payload, &e.FinalPDPercent, &e.Occupation, &e.Age, &e.CreatedAt); err != nil {
		return nil, err
	}

	e.Result = &domain.RatingResult{}
	if err := json.Unmarshal(payload, e.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result for %s: %w", e.ID, err)
	}
	return e, nil
}
