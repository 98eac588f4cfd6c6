package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// sourceURLConstraint is the named uniqueness constraint on
// opportunities.source_url. A violation of it is an expected race,
// recovered internally; any other integrity violation surfaces as an
// IntegrityError.
const sourceURLConstraint = "opportunities_source_url_uc"

// IntegrityError reports a storage constraint violation that is not the
// expected source_url duplicate. The record is dropped from the run; the
// caller logs SourceURL for later reprocessing.
type IntegrityError struct {
	SourceURL  string
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation (%s) for %s: %v", e.Constraint, e.SourceURL, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

const (
	pqUniqueViolation = "23505"
	pqIntegrityClass  = "23"
)

// classifyWriteError maps driver errors to the repository taxonomy.
// Connection failures pass through wrapped so the caller can abort the run.
func classifyWriteError(err error, sourceURL string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code.Class()) == pqIntegrityClass && pqErr.Constraint != sourceURLConstraint {
			return &IntegrityError{
				SourceURL:  sourceURL,
				Constraint: pqErr.Constraint,
				Err:        err,
			}
		}
		return fmt.Errorf("write opportunity %s: %w", sourceURL, err)
	}

	// modernc/sqlite reports constraint failures as plain error strings.
	if strings.Contains(err.Error(), "constraint failed") &&
		!strings.Contains(err.Error(), "opportunities.source_url") {
		return &IntegrityError{
			SourceURL: sourceURL,
			Err:       err,
		}
	}

	return fmt.Errorf("write opportunity %s: %w", sourceURL, err)
}

// isUniqueViolation reports whether err is the source_url duplicate.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation && pqErr.Constraint == sourceURLConstraint
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: opportunities.source_url")
}
