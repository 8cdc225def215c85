package out

import (
	"context"

	"timeblocks/internal/modules/docstore/domain"
)

type Repository interface {
	Get(ctx context.Context, path domain.Path) (domain.Document, bool, error)
	Put(ctx context.Context, doc domain.Document) error
}
