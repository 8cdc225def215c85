package usecase

import (
	"context"
	"fmt"
	"sync"

	"timeblocks/internal/modules/docstore/domain"
	docstoredto "timeblocks/internal/modules/docstore/dto"
	docstorein "timeblocks/internal/modules/docstore/port/in"
	"timeblocks/internal/modules/docstore/service"
	apperrors "timeblocks/internal/platform/errors"
)

type Interactor struct {
	svc *service.DocumentService
}

func NewInteractor(svc *service.DocumentService) docstorein.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Get(ctx context.Context, namespace, userID string) (docstoredto.DocumentOutput, error) {
	path, err := toPath(namespace, userID)
	if err != nil {
		return docstoredto.DocumentOutput{}, err
	}
	doc, err := i.svc.Get(ctx, path)
	if err != nil {
		return docstoredto.DocumentOutput{}, err
	}
	return toOutput(domain.Snapshot{Document: doc, Exists: true})
}

func (i *Interactor) Merge(ctx context.Context, namespace, userID string, body []byte) (docstoredto.DocumentOutput, error) {
	path, err := toPath(namespace, userID)
	if err != nil {
		return docstoredto.DocumentOutput{}, err
	}
	fields, err := domain.DecodeFields(body)
	if err != nil {
		return docstoredto.DocumentOutput{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	doc, err := i.svc.Merge(ctx, path, fields)
	if err != nil {
		return docstoredto.DocumentOutput{}, err
	}
	return toOutput(domain.Snapshot{Document: doc, Exists: true})
}

func (i *Interactor) Subscribe(ctx context.Context, namespace, userID string) (<-chan docstoredto.DocumentOutput, func(), error) {
	path, err := toPath(namespace, userID)
	if err != nil {
		return nil, nil, err
	}
	snapshots, cancel, err := i.svc.Subscribe(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	stop := make(chan struct{})
	var once sync.Once
	stopAll := func() {
		once.Do(func() {
			close(stop)
			cancel()
		})
	}
	out := make(chan docstoredto.DocumentOutput, 1)
	go func() {
		defer close(out)
		for snapshot := range snapshots {
			output, err := toOutput(snapshot)
			if err != nil {
				continue
			}
			select {
			case out <- output:
			case <-stop:
				return
			}
		}
	}()
	return out, stopAll, nil
}

func toPath(namespace, userID string) (domain.Path, error) {
	path, err := domain.NewPath(namespace, userID)
	if err != nil {
		return domain.Path{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return path, nil
}

func toOutput(snapshot domain.Snapshot) (docstoredto.DocumentOutput, error) {
	doc := snapshot.Document
	output := docstoredto.DocumentOutput{
		Namespace: doc.Path.Namespace,
		UserID:    doc.Path.UserID,
		Exists:    snapshot.Exists,
	}
	if !snapshot.Exists {
		return output, nil
	}
	body, err := doc.Fields.Encode()
	if err != nil {
		return docstoredto.DocumentOutput{}, fmt.Errorf("encode document %s: %w", doc.Path, err)
	}
	output.Body = body
	output.Revision = doc.Revision
	output.UpdatedAt = doc.UpdatedAt
	return output, nil
}
