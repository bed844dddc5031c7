// Package crawlerconfig parses and validates the on-disk JSON config
// file a Crawler definition references (§6.2). The structure mirrors
// the original's per-site JSON configs (site_name, base_url,
// list_url_template, categories, crawler_settings, content_extraction).
package crawlerconfig

import (
	"encoding/json"
	"fmt"

	"github.com/jonesrussell/crawlorc/internal/apperr"
)

// Settings are the crawler_settings object's typed fields (§6.2).
type Settings struct {
	MaxRetries  int `json:"max_retries"`
	RetryDelay  int `json:"retry_delay"`
	TimeoutSecs int `json:"timeout"`
}

// File is the parsed config_file_name document.
type File struct {
	SiteName          string         `json:"site_name"`
	BaseURL           string         `json:"base_url"`
	ListURLTemplate   string         `json:"list_url_template"`
	Categories        map[string]any `json:"categories"`
	CrawlerSettings   Settings       `json:"crawler_settings"`
	ContentExtraction map[string]any `json:"content_extraction"`
}

// Parse unmarshals raw JSON bytes into a File.
func Parse(data []byte) (File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, apperr.NewValidationError("config_file", fmt.Sprintf("invalid JSON: %v", err))
	}
	return f, nil
}

// Validate enforces the load-time rules of §6.2: base_url non-empty,
// categories non-empty, max_retries >= 0.
func (f File) Validate() error {
	if f.BaseURL == "" {
		return apperr.NewValidationError("base_url", "must not be empty")
	}
	if len(f.Categories) == 0 {
		return apperr.NewValidationError("categories", "must not be empty")
	}
	if f.CrawlerSettings.MaxRetries < 0 {
		return apperr.NewValidationError("crawler_settings.max_retries", "must be >= 0")
	}
	return nil
}
