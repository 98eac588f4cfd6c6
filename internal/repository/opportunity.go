// Package repository implements the persistence layer: the opportunity
// upsert engine and the source registry.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jonesrussell/opportunity-ingestor/internal/identity"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/models"
)

// UpsertOutcome reports what an upsert did to the row.
type UpsertOutcome string

const (
	OutcomeCreated   UpsertOutcome = "created"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
)

const opportunityColumns = `id, source_id, title, description, deadline, opportunity_type,
		       sector, stage, amount, source_url, scraped_at, updated_at`

type OpportunityRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewOpportunityRepository(db *sql.DB, log logger.Logger) *OpportunityRepository {
	return &OpportunityRepository{
		db:     db,
		logger: log,
	}
}

// Upsert inserts the record if its source_url is unseen, otherwise updates
// the existing row in place, but only when a tracked field actually
// changed, so a no-op re-scrape never bumps updated_at. The whole
// lookup+write pair runs in one transaction; a lost insert race falls back
// to the update path. The returned id is stable for the source_url forever.
func (r *OpportunityRepository) Upsert(ctx context.Context, rec *models.Record) (id string, outcome UpsertOutcome, err error) {
	if validateErr := rec.Validate(); validateErr != nil {
		return "", "", validateErr
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	id, outcome, err = r.upsertTx(ctx, tx, rec, time.Now().UTC())
	if err != nil {
		return "", "", err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return "", "", err
	}
	return id, outcome, nil
}

func (r *OpportunityRepository) upsertTx(ctx context.Context, tx *sql.Tx, rec *models.Record, now time.Time) (string, UpsertOutcome, error) {
	existing, err := getBySourceURL(ctx, tx, rec.SourceURL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", "", err
	}

	if existing == nil {
		newID := identity.FromURL(rec.SourceURL)
		inserted, insertErr := r.insert(ctx, tx, newID, rec, now)
		if insertErr != nil {
			return "", "", insertErr
		}
		if inserted {
			return newID, OutcomeCreated, nil
		}

		// A concurrent writer inserted the row between our lookup and the
		// insert; re-read and continue on the update path.
		existing, err = getBySourceURL(ctx, tx, rec.SourceURL)
		if err != nil {
			return "", "", fmt.Errorf("re-read after insert conflict: %w", err)
		}
	}

	if existing.Matches(rec) {
		return existing.ID, OutcomeUnchanged, nil
	}

	if updateErr := r.update(ctx, tx, existing.ID, rec, now); updateErr != nil {
		return "", "", updateErr
	}
	return existing.ID, OutcomeUpdated, nil
}

func (r *OpportunityRepository) insert(ctx context.Context, tx *sql.Tx, id string, rec *models.Record, now time.Time) (bool, error) {
	query := `
		INSERT INTO opportunities (
			id, source_id, title, description, deadline, opportunity_type,
			sector, stage, amount, source_url, scraped_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_url) DO NOTHING
	`

	result, err := tx.ExecContext(ctx,
		query,
		id,
		rec.SourceID,
		rec.Title,
		rec.Description,
		models.DateFrom(rec.Deadline),
		string(rec.Type),
		rec.Sector,
		rec.Stage,
		amountValue(rec.Amount),
		rec.SourceURL,
		models.Timestamp{Time: now},
		models.Timestamp{Time: now},
	)
	if err != nil {
		// Some paths surface the duplicate as an error instead of a
		// conflict no-op; treat it the same and let the caller fall back
		// to the update path.
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, classifyWriteError(err, rec.SourceURL)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *OpportunityRepository) update(ctx context.Context, tx *sql.Tx, id string, rec *models.Record, now time.Time) error {
	query := `
		UPDATE opportunities
		SET source_id = $2, title = $3, description = $4, deadline = $5,
		    opportunity_type = $6, sector = $7, stage = $8, amount = $9,
		    updated_at = $10
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx,
		query,
		id,
		rec.SourceID,
		rec.Title,
		rec.Description,
		models.DateFrom(rec.Deadline),
		string(rec.Type),
		rec.Sector,
		rec.Stage,
		amountValue(rec.Amount),
		models.Timestamp{Time: now},
	)
	if err != nil {
		return classifyWriteError(err, rec.SourceURL)
	}
	return nil
}

func amountValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// queryer lets lookups run against either the pool or a transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetByID returns a single opportunity by its id.
func (r *OpportunityRepository) GetByID(ctx context.Context, id string) (*models.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE id = $1
	`
	return scanOpportunityRow(r.db.QueryRowContext(ctx, query, id))
}

// GetBySourceURL returns the opportunity for the given natural key.
func (r *OpportunityRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*models.Opportunity, error) {
	return getBySourceURL(ctx, r.db, sourceURL)
}

func getBySourceURL(ctx context.Context, q queryer, sourceURL string) (*models.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE source_url = $1
	`
	return scanOpportunityRow(q.QueryRowContext(ctx, query, sourceURL))
}

// ListFilter holds pagination and filter params for List and Count.
type ListFilter struct {
	Limit     int
	Offset    int
	SortBy    string // title, deadline, amount, scraped_at, updated_at
	SortOrder string // asc, desc
	Search    string // case-insensitive match on title or description
	Type      string // financing, support; empty for all
	Sector    string // exact sector match; empty for all
}

// Count returns the number of opportunities matching the filter.
func (r *OpportunityRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	whereClause, args := buildOpportunityWhere(filter)
	query := `SELECT COUNT(*) FROM opportunities WHERE 1=1` + whereClause

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count opportunities: %w", err)
	}
	return count, nil
}

const (
	limitParamIdx  = 1
	offsetParamIdx = 2
)

// List returns opportunities with pagination, sorting, and filtering.
func (r *OpportunityRepository) List(ctx context.Context, filter ListFilter) ([]models.Opportunity, error) {
	whereClause, whereArgs := buildOpportunityWhere(filter)
	orderClause := buildOpportunityOrder(filter)
	argCount := len(whereArgs)
	limitPlaceholder := strconv.Itoa(argCount + limitParamIdx)
	offsetPlaceholder := strconv.Itoa(argCount + offsetParamIdx)
	// whereClause and orderClause use whitelisted column names; limit/offset are integers
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE 1=1` + whereClause + orderClause + `
		LIMIT $` + limitPlaceholder + ` OFFSET $` + offsetPlaceholder

	args := append(append([]any{}, whereArgs...), filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunityRows(rows)
}

func buildOpportunityWhere(filter ListFilter) (whereClause string, args []any) {
	var clauses []string
	args = make([]any, 0)
	pos := 1

	if filter.Search != "" {
		clauses = append(clauses,
			fmt.Sprintf("(LOWER(title) LIKE LOWER($%d) OR LOWER(description) LIKE LOWER($%d))", pos, pos))
		args = append(args, "%"+filter.Search+"%")
		pos++
	}
	if filter.Type != "" {
		clauses = append(clauses, fmt.Sprintf("opportunity_type = $%d", pos))
		args = append(args, filter.Type)
		pos++
	}
	if filter.Sector != "" {
		clauses = append(clauses, fmt.Sprintf("sector = $%d", pos))
		args = append(args, filter.Sector)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func buildOpportunityOrder(filter ListFilter) string {
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "updated_at"
	}
	validSort := map[string]bool{
		"title": true, "deadline": true, "amount": true,
		"scraped_at": true, "updated_at": true,
	}
	if !validSort[sortBy] {
		sortBy = "updated_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", sortBy, order)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner) (*models.Opportunity, error) {
	var o models.Opportunity
	var deadline models.Date
	var sector, stage sql.NullString
	var amount decimal.NullDecimal
	var scrapedAt, updatedAt models.Timestamp

	if err := row.Scan(
		&o.ID,
		&o.SourceID,
		&o.Title,
		&o.Description,
		&deadline,
		&o.Type,
		&sector,
		&stage,
		&amount,
		&o.SourceURL,
		&scrapedAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	o.Deadline = deadline.Ptr()
	if sector.Valid {
		o.Sector = &sector.String
	}
	if stage.Valid {
		o.Stage = &stage.String
	}
	if amount.Valid {
		o.Amount = &amount.Decimal
	}
	o.ScrapedAt = scrapedAt.Time
	o.UpdatedAt = updatedAt.Time
	return &o, nil
}

func scanOpportunityRow(row *sql.Row) (*models.Opportunity, error) {
	o, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opportunity: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query opportunity: %w", err)
	}
	return o, nil
}

func scanOpportunityRows(rows *sql.Rows) ([]models.Opportunity, error) {
	opportunities := make([]models.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		opportunities = append(opportunities, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return opportunities, nil
}
