package crawlerconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawlorc/internal/crawlerconfig"
)

const validJSON = `{
	"site_name": "Example",
	"base_url": "https://example.com",
	"list_url_template": "https://example.com/list?page={page}",
	"categories": {"news": "/news", "sports": "/sports"},
	"crawler_settings": {"max_retries": 3, "retry_delay": 5, "timeout": 30},
	"content_extraction": {"article_selector": ".article"}
}`

func TestParse_ValidDocument(t *testing.T) {
	f, err := crawlerconfig.Parse([]byte(validJSON))

	require.NoError(t, err)
	assert.Equal(t, "Example", f.SiteName)
	assert.Equal(t, "https://example.com", f.BaseURL)
	assert.Len(t, f.Categories, 2)
	assert.Equal(t, 3, f.CrawlerSettings.MaxRetries)
	assert.NoError(t, f.Validate())
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := crawlerconfig.Parse([]byte(`{not json`))

	require.Error(t, err)
}

func TestValidate_RejectsEmptyBaseURL(t *testing.T) {
	f := crawlerconfig.File{Categories: map[string]any{"news": "/news"}}

	err := f.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestValidate_RejectsEmptyCategories(t *testing.T) {
	f := crawlerconfig.File{BaseURL: "https://example.com"}

	err := f.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "categories")
}

func TestValidate_RejectsNegativeMaxRetries(t *testing.T) {
	f := crawlerconfig.File{
		BaseURL:         "https://example.com",
		Categories:      map[string]any{"news": "/news"},
		CrawlerSettings: crawlerconfig.Settings{MaxRetries: -1},
	}

	err := f.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_retries")
}
