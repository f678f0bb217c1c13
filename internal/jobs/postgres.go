package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/resilience"
)

// Querier is the subset of *sql.DB the catalog needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore reads job postings from PostgreSQL. It is read-only; the
// catalog is maintained outside this service.
//
// It requires a `job_postings` table:
//
//	CREATE TABLE job_postings (
//	    id          TEXT PRIMARY KEY,
//	    title       TEXT NOT NULL,
//	    company     TEXT NOT NULL DEFAULT '',
//	    skills      TEXT[] NOT NULL DEFAULT '{}',
//	    location    TEXT NOT NULL DEFAULT '',
//	    description TEXT NOT NULL DEFAULT '',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db           Querier
	breaker      *resilience.CircuitBreaker
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewPostgresStore creates a catalog over db. Queries are bounded by
// queryTimeout and short-circuited while the breaker is open.
func NewPostgresStore(db Querier, breaker *resilience.CircuitBreaker, queryTimeout time.Duration) *PostgresStore {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("job-catalog", resilience.CircuitBreakerConfig{})
	}
	return &PostgresStore{
		db:           db,
		breaker:      breaker,
		queryTimeout: queryTimeout,
		logger:       slog.Default().With("component", "job-catalog"),
	}
}

const listQuery = `SELECT id, title, company, skills, location, description
	FROM job_postings ORDER BY created_at, id`

const getQuery = `SELECT id, title, company, skills, location, description
	FROM job_postings WHERE id = $1`

func (s *PostgresStore) List(ctx context.Context) ([]Posting, error) {
	postings, err := resilience.Call(ctx, s.breaker, s.queryTimeout, func(ctx context.Context) ([]Posting, error) {
		rows, err := s.db.QueryContext(ctx, listQuery)
		if err != nil {
			return nil, fmt.Errorf("querying job postings: %w", err)
		}
		defer rows.Close()

		var out []Posting
		for rows.Next() {
			p, err := scanPosting(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, catalogError("list job postings", err)
	}
	s.logger.Debug("job postings loaded", "count", len(postings))
	return postings, nil
}

// Get returns one posting. A missing row is not a catalog failure and does
// not count against the breaker.
func (s *PostgresStore) Get(ctx context.Context, id ID) (*Posting, error) {
	p, err := resilience.Call(ctx, s.breaker, s.queryTimeout, func(ctx context.Context) (*Posting, error) {
		p, err := scanPosting(s.db.QueryRowContext(ctx, getQuery, string(id)))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		return nil, catalogError("get job posting", err)
	}
	if p == nil {
		return nil, fmt.Errorf("job %s: %w", id, apperrors.ErrJobNotFound)
	}
	return p, nil
}

// catalogError marks an open breaker or an expired query deadline as the
// catalog being unavailable.
func catalogError(op string, err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrSourceUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (Posting, error) {
	var (
		p      Posting
		id     string
		skills pq.StringArray
	)
	if err := row.Scan(&id, &p.Title, &p.Company, &skills, &p.Location, &p.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scanning job posting: %w", err)
	}
	p.ID = ID(id)
	p.Skills = []string(skills)
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return p, nil
}
