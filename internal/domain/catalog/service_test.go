package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// ── Mock Repository ──

type mockScaleRepo struct {
	data map[uuid.UUID]*ScaleDefinition
}

func newMockScaleRepo() *mockScaleRepo {
	return &mockScaleRepo{data: make(map[uuid.UUID]*ScaleDefinition)}
}

func (m *mockScaleRepo) Create(_ context.Context, d *ScaleDefinition) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	m.data[d.ID] = &cp
	return nil
}
func (m *mockScaleRepo) GetByID(_ context.Context, id uuid.UUID) (*ScaleDefinition, error) {
	if d, ok := m.data[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockScaleRepo) GetByCode(_ context.Context, code string) (*ScaleDefinition, error) {
	for _, d := range m.data {
		if d.Code == code {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockScaleRepo) Update(_ context.Context, d *ScaleDefinition) error {
	if _, ok := m.data[d.ID]; !ok {
		return fmt.Errorf("not found")
	}
	cp := *d
	m.data[d.ID] = &cp
	return nil
}
func (m *mockScaleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.data, id)
	return nil
}
func (m *mockScaleRepo) List(_ context.Context, limit, offset int) ([]*ScaleDefinition, int, error) {
	var out []*ScaleDefinition
	for _, d := range m.data {
		out = append(out, d)
	}
	return out, len(out), nil
}
func (m *mockScaleRepo) ListPublished(_ context.Context, limit, offset int) ([]*ScaleDefinition, int, error) {
	var out []*ScaleDefinition
	for _, d := range m.data {
		if d.Published {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

// ── Tests ──

func TestCreateScaleValidatesAndStoresUnpublished(t *testing.T) {
	svc := NewService(newMockScaleRepo())
	ctx := context.Background()

	d := testScale()
	d.Published = true
	if err := svc.CreateScale(ctx, d); err != nil {
		t.Fatal(err)
	}
	if d.Published {
		t.Fatal("creation must never publish a definition")
	}

	bad := testScale()
	bad.Rules = nil
	err := svc.CreateScale(ctx, bad)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

func TestUpdateScaleRejectsPublished(t *testing.T) {
	repo := newMockScaleRepo()
	svc := NewService(repo)
	ctx := context.Background()

	d := testScale()
	if err := svc.CreateScale(ctx, d); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.PublishScale(ctx, d.ID); err != nil {
		t.Fatal(err)
	}

	d.Name = "Renamed"
	if err := svc.UpdateScale(ctx, d); !errors.Is(err, ErrPublished) {
		t.Fatalf("expected ErrPublished, got %v", err)
	}
	if err := svc.DeleteScale(ctx, d.ID); !errors.Is(err, ErrPublished) {
		t.Fatalf("expected ErrPublished on delete, got %v", err)
	}
}

func TestPublishScaleRevalidates(t *testing.T) {
	repo := newMockScaleRepo()
	svc := NewService(repo)
	ctx := context.Background()

	d := testScale()
	if err := svc.CreateScale(ctx, d); err != nil {
		t.Fatal(err)
	}

	// Corrupt the stored document behind the service's back; publish must
	// catch it.
	stored := repo.data[d.ID]
	stored.Rules = stored.Rules[:1]

	_, err := svc.PublishScale(ctx, d.ID)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors on publish, got %v", err)
	}
}

func TestPublishScaleIsIdempotent(t *testing.T) {
	svc := NewService(newMockScaleRepo())
	ctx := context.Background()

	d := testScale()
	if err := svc.CreateScale(ctx, d); err != nil {
		t.Fatal(err)
	}
	first, err := svc.PublishScale(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.PublishScale(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Published || !second.Published {
		t.Fatal("expected published definition both times")
	}
}

func TestAdministrableScale(t *testing.T) {
	svc := NewService(newMockScaleRepo())
	ctx := context.Background()

	d := testScale()
	if err := svc.CreateScale(ctx, d); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AdministrableScale(ctx, d.ID); !errors.Is(err, ErrNotAdministrable) {
		t.Fatalf("expected ErrNotAdministrable for a draft, got %v", err)
	}

	if _, err := svc.PublishScale(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.AdministrableScale(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Code != d.Code {
		t.Fatalf("expected %q, got %q", d.Code, got.Code)
	}
}

func TestPublishedScaleIsCached(t *testing.T) {
	repo := newMockScaleRepo()
	svc := NewService(repo)
	ctx := context.Background()

	d := testScale()
	if err := svc.CreateScale(ctx, d); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.PublishScale(ctx, d.ID); err != nil {
		t.Fatal(err)
	}

	// Remove the row; the cache must still serve the published definition.
	delete(repo.data, d.ID)
	if _, err := svc.GetScale(ctx, d.ID); err != nil {
		t.Fatalf("expected cache hit, got %v", err)
	}
	if _, err := svc.GetScaleByCode(ctx, d.Code); err != nil {
		t.Fatalf("expected cache hit by code, got %v", err)
	}
}

func TestItemOptions(t *testing.T) {
	svc := NewService(newMockScaleRepo())
	ctx := context.Background()

	d := testScale()
	if err := svc.CreateScale(ctx, d); err != nil {
		t.Fatal(err)
	}

	opts, err := svc.ItemOptions(ctx, d.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 4 {
		t.Fatalf("expected 4 options, got %d", len(opts))
	}

	if _, err := svc.ItemOptions(ctx, d.ID, 99); err == nil {
		t.Fatal("expected unknown item to fail")
	}
}
