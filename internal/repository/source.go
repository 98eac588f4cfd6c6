package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/models"
)

const sourceColumns = `id, name, url, opportunity_type, rate_limit, max_pages,
		       selectors, enabled, created_at, updated_at`

type SourceRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSourceRepository(db *sql.DB, log logger.Logger) *SourceRepository {
	return &SourceRepository{
		db:     db,
		logger: log,
	}
}

func (r *SourceRepository) Create(ctx context.Context, source *models.Source) error {
	source.ID = uuid.New().String()
	source.CreatedAt = time.Now().UTC()
	source.UpdatedAt = source.CreatedAt

	selectorsJSON, err := json.Marshal(source.Selectors)
	if err != nil {
		return fmt.Errorf("marshal selectors: %w", err)
	}

	query := `
		INSERT INTO sources (
			id, name, url, opportunity_type, rate_limit, max_pages,
			selectors, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx,
		query,
		source.ID,
		source.Name,
		source.URL,
		string(source.Type),
		source.RateLimit,
		source.MaxPages,
		string(selectorsJSON),
		source.Enabled,
		models.Timestamp{Time: source.CreatedAt},
		models.Timestamp{Time: source.UpdatedAt},
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*models.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE id = $1
	`
	return scanSourceRowStrict(r.db.QueryRowContext(ctx, query, id))
}

// GetByName looks a source up by its natural key.
func (r *SourceRepository) GetByName(ctx context.Context, name string) (*models.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE name = $1
	`
	return scanSourceRowStrict(r.db.QueryRowContext(ctx, query, name))
}

func (r *SourceRepository) List(ctx context.Context) ([]models.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		ORDER BY name
	`
	return r.querySources(ctx, query)
}

// ListEnabled returns the sources the scrape cycle should visit.
func (r *SourceRepository) ListEnabled(ctx context.Context) ([]models.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE enabled = $1
		ORDER BY name
	`
	return r.querySources(ctx, query, true)
}

func (r *SourceRepository) querySources(ctx context.Context, query string, args ...any) ([]models.Source, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	sources := make([]models.Source, 0)
	for rows.Next() {
		source, scanErr := scanSource(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan source: %w", scanErr)
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

func (r *SourceRepository) Update(ctx context.Context, source *models.Source) error {
	source.UpdatedAt = time.Now().UTC()

	selectorsJSON, err := json.Marshal(source.Selectors)
	if err != nil {
		return fmt.Errorf("marshal selectors: %w", err)
	}

	query := `
		UPDATE sources
		SET name = $2, url = $3, opportunity_type = $4, rate_limit = $5,
		    max_pages = $6, selectors = $7, enabled = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx,
		query,
		source.ID,
		source.Name,
		source.URL,
		string(source.Type),
		source.RateLimit,
		source.MaxPages,
		string(selectorsJSON),
		source.Enabled,
		models.Timestamp{Time: source.UpdatedAt},
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("source %s: %w", source.ID, ErrNotFound)
	}
	return nil
}

func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertSourcesTx upserts multiple sources in a single transaction, keyed
// by name. Returns the count of created and updated sources. If any upsert
// fails, the entire transaction is rolled back.
func (r *SourceRepository) UpsertSourcesTx(ctx context.Context, sources []*models.Source) (created, updated int, err error) {
	if len(sources) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
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

	for _, source := range sources {
		isCreated, upsertErr := r.upsertSource(ctx, tx, source)
		if upsertErr != nil {
			err = fmt.Errorf("upsert source %q: %w", source.Name, upsertErr)
			return 0, 0, err
		}
		if isCreated {
			created++
		} else {
			updated++
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return 0, 0, err
	}
	return created, updated, nil
}

// upsertSource inserts or updates a source within an existing transaction.
// Returns true if the source was created. Lookup and write share the
// transaction, so the pair is atomic on both drivers.
func (r *SourceRepository) upsertSource(ctx context.Context, tx *sql.Tx, source *models.Source) (bool, error) {
	now := time.Now().UTC()

	selectorsJSON, err := json.Marshal(source.Selectors)
	if err != nil {
		return false, fmt.Errorf("marshal selectors: %w", err)
	}

	existing, err := scanSourceRow(tx.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE name = $1`, source.Name))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}

	if existing == nil {
		if source.ID == "" {
			source.ID = uuid.New().String()
		}
		source.CreatedAt = now
		source.UpdatedAt = now

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sources (
				id, name, url, opportunity_type, rate_limit, max_pages,
				selectors, enabled, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			source.ID,
			source.Name,
			source.URL,
			string(source.Type),
			source.RateLimit,
			source.MaxPages,
			string(selectorsJSON),
			source.Enabled,
			models.Timestamp{Time: now},
			models.Timestamp{Time: now},
		)
		if err != nil {
			return false, fmt.Errorf("insert source: %w", err)
		}
		return true, nil
	}

	source.ID = existing.ID
	source.CreatedAt = existing.CreatedAt
	source.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		UPDATE sources
		SET url = $2, opportunity_type = $3, rate_limit = $4, max_pages = $5,
		    selectors = $6, enabled = $7, updated_at = $8
		WHERE id = $1`,
		source.ID,
		source.URL,
		string(source.Type),
		source.RateLimit,
		source.MaxPages,
		string(selectorsJSON),
		source.Enabled,
		models.Timestamp{Time: now},
	)
	if err != nil {
		return false, fmt.Errorf("update source: %w", err)
	}
	return false, nil
}

func scanSource(row rowScanner) (*models.Source, error) {
	var source models.Source
	var selectorsJSON []byte
	var createdAt, updatedAt models.Timestamp

	if err := row.Scan(
		&source.ID,
		&source.Name,
		&source.URL,
		&source.Type,
		&source.RateLimit,
		&source.MaxPages,
		&selectorsJSON,
		&source.Enabled,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(selectorsJSON, &source.Selectors); err != nil {
		return nil, fmt.Errorf("unmarshal selectors: %w", err)
	}

	source.RateLimit = models.NormalizeRateLimit(source.RateLimit)
	source.CreatedAt = createdAt.Time
	source.UpdatedAt = updatedAt.Time
	return &source, nil
}

func scanSourceRow(row *sql.Row) (*models.Source, error) {
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query source: %w", err)
	}
	return source, nil
}

// scanSourceRowStrict also merges selector defaults, so API reads always
// return complete selector chains.
func scanSourceRowStrict(row *sql.Row) (*models.Source, error) {
	source, err := scanSourceRow(row)
	if err != nil {
		return nil, err
	}
	source.Selectors = source.Selectors.MergeWithDefaults()
	return source, nil
}
