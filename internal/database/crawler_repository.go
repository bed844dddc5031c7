package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

const crawlerColumns = `id, crawler_name, crawler_type, module_name,
	base_url, config_file_name, is_active, created_at, updated_at`

// CrawlerRepository is the repository contract for Crawler catalog
// entries.
type CrawlerRepository struct {
	db dbtx
}

// NewCrawlerRepository creates a new crawler repository bound to the
// connection pool.
func NewCrawlerRepository(db *sqlx.DB) *CrawlerRepository {
	return &CrawlerRepository{db: db}
}

// WithTx returns a repository bound to tx instead of the pool.
func (r *CrawlerRepository) WithTx(tx *sqlx.Tx) *CrawlerRepository {
	return &CrawlerRepository{db: tx}
}

func validateCrawler(c *domain.Crawler) error {
	if c.CrawlerName == "" {
		return apperr.NewValidationError("crawler_name", "must not be empty")
	}
	if c.BaseURL == "" {
		return apperr.NewValidationError("base_url", "must not be empty")
	}
	if c.ConfigFileName == "" {
		return apperr.NewValidationError("config_file_name", "must not be empty")
	}
	return nil
}

// Create inserts a new crawler.
func (r *CrawlerRepository) Create(ctx context.Context, c *domain.Crawler) error {
	if err := validateCrawler(c); err != nil {
		return err
	}
	query := `INSERT INTO crawlers
		(crawler_name, crawler_type, module_name, base_url, config_file_name, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		c.CrawlerName, c.CrawlerType, c.ModuleName, c.BaseURL, c.ConfigFileName, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return apperr.NewDatabaseOperationError("create crawler", err)
	}
	return nil
}

// Update persists full-row edits to a crawler.
func (r *CrawlerRepository) Update(ctx context.Context, c *domain.Crawler) error {
	if err := validateCrawler(c); err != nil {
		return err
	}
	query := `UPDATE crawlers SET
		crawler_name = $1, crawler_type = $2, module_name = $3,
		base_url = $4, config_file_name = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7`
	result, err := r.db.ExecContext(ctx, query,
		c.CrawlerName, c.CrawlerType, c.ModuleName, c.BaseURL, c.ConfigFileName, c.IsActive, c.ID,
	)
	return execRequireRows(result, wrapDBErr("update crawler", err), apperr.NewNotFoundError("crawler", c.ID))
}

// Get fetches a crawler by id.
func (r *CrawlerRepository) Get(ctx context.Context, id int64) (*domain.Crawler, error) {
	var c domain.Crawler
	query := `SELECT ` + crawlerColumns + ` FROM crawlers WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("crawler", id)
		}
		return nil, apperr.NewDatabaseOperationError("get crawler", err)
	}
	return &c, nil
}

// FindByName fetches a crawler by its unique name.
func (r *CrawlerRepository) FindByName(ctx context.Context, name string) (*domain.Crawler, error) {
	var c domain.Crawler
	query := `SELECT ` + crawlerColumns + ` FROM crawlers WHERE crawler_name = $1`
	if err := r.db.GetContext(ctx, &c, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("crawler", name)
		}
		return nil, apperr.NewDatabaseOperationError("find crawler by name", err)
	}
	return &c, nil
}

// Delete removes a crawler.
func (r *CrawlerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM crawlers WHERE id = $1`, id)
	return execRequireRows(result, wrapDBErr("delete crawler", err), apperr.NewNotFoundError("crawler", id))
}

// List returns every crawler.
func (r *CrawlerRepository) List(ctx context.Context) ([]domain.Crawler, error) {
	var crawlers []domain.Crawler
	query := `SELECT ` + crawlerColumns + ` FROM crawlers ORDER BY crawler_name`
	if err := r.db.SelectContext(ctx, &crawlers, query); err != nil {
		return nil, apperr.NewDatabaseOperationError("list crawlers", err)
	}
	return crawlers, nil
}

// FindActive returns only active crawlers, grounded in the original's
// GET /api/crawlers/active.
func (r *CrawlerRepository) FindActive(ctx context.Context) ([]domain.Crawler, error) {
	var crawlers []domain.Crawler
	query := `SELECT ` + crawlerColumns + ` FROM crawlers WHERE is_active = true ORDER BY crawler_name`
	if err := r.db.SelectContext(ctx, &crawlers, query); err != nil {
		return nil, apperr.NewDatabaseOperationError("find active crawlers", err)
	}
	return crawlers, nil
}

// DistinctTypes lists every crawler_type in use, grounded in the
// original's GET /api/crawlers/types.
func (r *CrawlerRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	var types []string
	query := `SELECT DISTINCT crawler_type FROM crawlers ORDER BY crawler_type`
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, apperr.NewDatabaseOperationError("distinct crawler types", err)
	}
	return types, nil
}

// CountByType returns the number of crawlers of each type, grounded in
// the original's GET /api/crawlers/statistics.
func (r *CrawlerRepository) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := queryContext(ctx, r.db, `SELECT crawler_type, COUNT(*) FROM crawlers GROUP BY crawler_type`)
	if err != nil {
		return nil, apperr.NewDatabaseOperationError("count crawlers by type", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, apperr.NewDatabaseOperationError("count crawlers by type", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// ToggleActive flips is_active, grounded in the original's
// POST /api/crawlers/{id}/toggle.
func (r *CrawlerRepository) ToggleActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE crawlers SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	return execRequireRows(result, wrapDBErr("toggle crawler active", err), apperr.NewNotFoundError("crawler", id))
}
