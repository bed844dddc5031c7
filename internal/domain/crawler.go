package domain

import "time"

// Crawler is a named, versioned crawler definition. The actual
// HTML-fetching implementation lives behind the registry (internal/registry);
// this struct only carries the catalog entry.
type Crawler struct {
	ID             int64     `db:"id"`
	CrawlerName    string    `db:"crawler_name"`
	CrawlerType    string    `db:"crawler_type"`
	ModuleName     string    `db:"module_name"`
	BaseURL        string    `db:"base_url"`
	ConfigFileName string    `db:"config_file_name"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
