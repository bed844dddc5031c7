package domain

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// ScrapeOptions is the tagged-variant configuration that replaces the
// opaque task_args/global_params maps passed down from the original
// source's dynamic-dict config. Executor and crawler implementations
// exchange this struct instead of a bare map[string]any.
type ScrapeOptions struct {
	Mode                       ScrapeMode    `mapstructure:"scrape_mode"`
	MaxPages                   int           `mapstructure:"max_pages"`
	NumArticles                int           `mapstructure:"num_articles"`
	AIOnly                     bool          `mapstructure:"ai_only"`
	SaveToCSV                  bool          `mapstructure:"save_to_csv"`
	SaveToDatabase             bool          `mapstructure:"save_to_database"`
	SavePartialResultsOnCancel bool          `mapstructure:"save_partial_results_on_cancel"`
	SavePartialToDatabase      bool          `mapstructure:"save_partial_to_database"`
	Timeout                    time.Duration `mapstructure:"timeout"`
}

// DefaultScrapeOptions mirrors the defaults the original dynamic-dict
// config assumed when a key was absent.
func DefaultScrapeOptions() ScrapeOptions {
	return ScrapeOptions{
		Mode:           ScrapeModeFullScrape,
		MaxPages:       10,
		NumArticles:    50,
		SaveToCSV:      false,
		SaveToDatabase: true,
		Timeout:        30 * time.Second,
	}
}

// DecodeScrapeOptions decodes an opaque task_args/global_params map into a
// typed ScrapeOptions, starting from the defaults so that partially
// populated maps (the common case coming from persisted task_args) still
// yield a complete, valid configuration.
func DecodeScrapeOptions(args map[string]any) (ScrapeOptions, error) {
	opts := DefaultScrapeOptions()
	if len(args) == 0 {
		return opts, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := decoder.Decode(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// Encode converts ScrapeOptions back into an opaque task_args-style map.
func (o ScrapeOptions) Encode() (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(o, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WithMode returns a copy of args with scrape_mode overridden, used by the
// Executor's CollectLinksOnly/FetchContentOnly/FetchFullArticle wrappers.
func WithMode(args map[string]any, mode ScrapeMode) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	out["scrape_mode"] = string(mode)
	return out
}
