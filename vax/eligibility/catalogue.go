package eligibility

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/schoolvax/vax-app/vax/models"
)

const programmesKey = "programmes"

// Catalogue serves the programme list from memory, reloading it once the TTL expires.
type Catalogue struct {
	repository models.ProgrammeRepository
	cache      *cache.Cache
}

func NewCatalogue(repository models.ProgrammeRepository, ttl time.Duration) *Catalogue {
	return &Catalogue{
		repository: repository,
		cache:      cache.New(ttl, 2*ttl),
	}
}

func (c *Catalogue) Programmes(ctx context.Context) ([]models.Programme, error) {
	if cached, ok := c.cache.Get(programmesKey); ok {
		return cached.([]models.Programme), nil
	}

	programmes, err := c.repository.GetProgrammes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load programmes")
	}

	c.cache.SetDefault(programmesKey, programmes)
	return programmes, nil
}

// Index builds an eligibility index for academicYear from the current programme list.
func (c *Catalogue) Index(ctx context.Context, academicYear int) (*Index, error) {
	programmes, err := c.Programmes(ctx)
	if err != nil {
		return nil, err
	}
	return NewIndex(programmes, academicYear), nil
}

// Invalidate drops the cached programmes so the next call reloads them.
func (c *Catalogue) Invalidate() {
	c.cache.Delete(programmesKey)
}
