package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrPublished is returned for mutations against a published definition.
	ErrPublished = errors.New("scale definition is published and immutable")
	// ErrNotAdministrable is returned when a session is requested against an
	// unpublished definition.
	ErrNotAdministrable = errors.New("scale definition is not published")
)

// Service owns the scale catalog. Published definitions are immutable, so
// they are cached and shared safely across concurrent sessions.
type Service struct {
	scales ScaleRepository

	mu     sync.RWMutex
	cache  map[uuid.UUID]*ScaleDefinition
	byCode map[string]uuid.UUID
}

func NewService(scales ScaleRepository) *Service {
	return &Service{
		scales: scales,
		cache:  make(map[uuid.UUID]*ScaleDefinition),
		byCode: make(map[string]uuid.UUID),
	}
}

// CreateScale validates and stores a new, unpublished definition.
func (s *Service) CreateScale(ctx context.Context, d *ScaleDefinition) error {
	if errs := Validate(d); len(errs) > 0 {
		return errs
	}
	d.Published = false
	return s.scales.Create(ctx, d)
}

func (s *Service) GetScale(ctx context.Context, id uuid.UUID) (*ScaleDefinition, error) {
	s.mu.RLock()
	if d, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return d, nil
	}
	s.mu.RUnlock()

	d, err := s.scales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cachePublished(d)
	return d, nil
}

func (s *Service) GetScaleByCode(ctx context.Context, code string) (*ScaleDefinition, error) {
	s.mu.RLock()
	if id, ok := s.byCode[code]; ok {
		d := s.cache[id]
		s.mu.RUnlock()
		return d, nil
	}
	s.mu.RUnlock()

	d, err := s.scales.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cachePublished(d)
	return d, nil
}

// AdministrableScale returns a published definition ready for a session.
func (s *Service) AdministrableScale(ctx context.Context, id uuid.UUID) (*ScaleDefinition, error) {
	d, err := s.GetScale(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Published {
		return nil, ErrNotAdministrable
	}
	return d, nil
}

func (s *Service) ListScales(ctx context.Context, limit, offset int) ([]*ScaleDefinition, int, error) {
	return s.scales.List(ctx, limit, offset)
}

func (s *Service) ListPublishedScales(ctx context.Context, limit, offset int) ([]*ScaleDefinition, int, error) {
	return s.scales.ListPublished(ctx, limit, offset)
}

// UpdateScale replaces an unpublished definition after revalidation.
func (s *Service) UpdateScale(ctx context.Context, d *ScaleDefinition) error {
	existing, err := s.scales.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	if existing.Published {
		return ErrPublished
	}
	if errs := Validate(d); len(errs) > 0 {
		return errs
	}
	d.Published = false
	return s.scales.Update(ctx, d)
}

// PublishScale freezes a definition, making it administrable. Validation
// runs once more against the stored document so a definition that slipped
// past an older validator cannot go live.
func (s *Service) PublishScale(ctx context.Context, id uuid.UUID) (*ScaleDefinition, error) {
	d, err := s.scales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Published {
		return d, nil
	}
	if errs := Validate(d); len(errs) > 0 {
		return nil, errs
	}
	d.Published = true
	if err := s.scales.Update(ctx, d); err != nil {
		return nil, err
	}
	s.cachePublished(d)
	return d, nil
}

func (s *Service) DeleteScale(ctx context.Context, id uuid.UUID) error {
	d, err := s.scales.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Published {
		return ErrPublished
	}
	return s.scales.Delete(ctx, id)
}

// ItemOptions resolves the presentation vocabulary for one item of a scale.
func (s *Service) ItemOptions(ctx context.Context, scaleID uuid.UUID, itemNumber int) ([]ResponseOption, error) {
	d, err := s.GetScale(ctx, scaleID)
	if err != nil {
		return nil, err
	}
	item := d.ItemByNumber(itemNumber)
	if item == nil {
		return nil, fmt.Errorf("scale %s has no item %d", d.Code, itemNumber)
	}
	return ResolveOptions(d, item)
}

func (s *Service) cachePublished(d *ScaleDefinition) {
	if !d.Published {
		return
	}
	s.mu.Lock()
	s.cache[d.ID] = d
	s.byCode[d.Code] = d.ID
	s.mu.Unlock()
}
