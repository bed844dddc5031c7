// Package service implements the Task Service and Crawler Service of
// §4.4/§4.5: a thin, validated layer over the repositories that the
// (out-of-scope) REST boundary and the Scheduler call into. Grounded in
// the original's src/services/crawlers_service.py and
// crawler_task_service.py: validate, delegate to a repository inside a
// scope, and return the repository's apperr-typed errors as they are
// instead of a {success, message} envelope.
package service

import (
	"context"

	"github.com/jonesrussell/crawlorc/internal/crawlerconfig"
	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

// CrawlerService is the Crawler Service of §4.4 ("CRUD + config-file
// lifecycle for crawler definitions").
type CrawlerService struct {
	repo    *database.CrawlerRepository
	configs ConfigStore
}

// NewCrawlerService constructs a CrawlerService.
func NewCrawlerService(repo *database.CrawlerRepository, configs ConfigStore) *CrawlerService {
	return &CrawlerService{repo: repo, configs: configs}
}

// Create validates and stores configFile (per §6.2), then creates the
// crawler catalog row referencing it.
func (s *CrawlerService) Create(ctx context.Context, c *domain.Crawler, configFileName string, configFile []byte) (*domain.Crawler, error) {
	cfg, err := crawlerconfig.Parse(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.configs.Save(configFileName, configFile)
	if err != nil {
		return nil, err
	}
	c.ConfigFileName = stored

	if err := s.repo.Create(ctx, c); err != nil {
		_ = s.configs.Remove(stored)
		return nil, err
	}
	return c, nil
}

// Update validates and replaces configFile when provided, then updates
// the crawler row. A nil configFile leaves the existing file in place.
func (s *CrawlerService) Update(ctx context.Context, c *domain.Crawler, configFileName string, configFile []byte) (*domain.Crawler, error) {
	if configFile != nil {
		cfg, err := crawlerconfig.Parse(configFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		stored, err := s.configs.Save(configFileName, configFile)
		if err != nil {
			return nil, err
		}
		c.ConfigFileName = stored
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the crawler row and best-effort removes its config
// file; a file-removal failure does not roll back the row deletion.
func (s *CrawlerService) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.configs.Remove(existing.ConfigFileName)
	return nil
}

// Get fetches a crawler by id.
func (s *CrawlerService) Get(ctx context.Context, id int64) (*domain.Crawler, error) {
	return s.repo.Get(ctx, id)
}

// List returns every crawler.
func (s *CrawlerService) List(ctx context.Context) ([]domain.Crawler, error) {
	return s.repo.List(ctx)
}

// Active returns every active crawler.
func (s *CrawlerService) Active(ctx context.Context) ([]domain.Crawler, error) {
	return s.repo.FindActive(ctx)
}

// Statistics returns the distinct crawler types in use and a per-type
// count, the data backing the original's crawler statistics endpoints
// (§9 design notes: data-access operations, not routing).
func (s *CrawlerService) Statistics(ctx context.Context) (types []string, countByType map[string]int, err error) {
	types, err = s.repo.DistinctTypes(ctx)
	if err != nil {
		return nil, nil, err
	}
	countByType, err = s.repo.CountByType(ctx)
	if err != nil {
		return nil, nil, err
	}
	return types, countByType, nil
}

// ToggleActive flips a crawler's is_active flag.
func (s *CrawlerService) ToggleActive(ctx context.Context, id int64, active bool) error {
	return s.repo.ToggleActive(ctx, id, active)
}
