package in

import (
	"context"

	"timeblocks/internal/modules/docstore/dto"
)

type Usecase interface {
	Get(ctx context.Context, namespace, userID string) (dto.DocumentOutput, error)
	Merge(ctx context.Context, namespace, userID string, body []byte) (dto.DocumentOutput, error)
	// Subscribe streams the document, current value first. The channel is
	// closed after cancel is called or ctx is done.
	Subscribe(ctx context.Context, namespace, userID string) (<-chan dto.DocumentOutput, func(), error)
}
