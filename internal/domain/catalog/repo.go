package catalog

import (
	"context"

	"github.com/google/uuid"
)

type ScaleRepository interface {
	Create(ctx context.Context, d *ScaleDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScaleDefinition, error)
	GetByCode(ctx context.Context, code string) (*ScaleDefinition, error)
	Update(ctx context.Context, d *ScaleDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*ScaleDefinition, int, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*ScaleDefinition, int, error)
}
