package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"modwallet/internal/ledger/models"
	"modwallet/internal/platform/tracing"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
	"modwallet/pkg/requestcontext"
)

// Cancel cancels every document in the folder and releases their holds. All
// documents must be created; otherwise nothing changes and InvalidRequest is
// returned.
func (s *Service) Cancel(ctx context.Context, folderID int64) (docs []*models.Document, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "document.Cancel", attribute.Int64("folder_id", folderID))
	defer func() {
		tracing.End(span, err)
		s.observe("cancel_folder", start)
		if err != nil {
			s.logRejected(ctx, "cancel folder", err, "folder_id", folderID)
		}
	}()

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.stores.Folders.FindByID(ctx, models.FolderID(folderID)); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.Fail(models.ErrFolderNotFound, "folder not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load folder")
		}
		locked, err := s.stores.Documents.LockByFolder(ctx, models.FolderID(folderID))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load folder documents")
		}
		for _, d := range locked {
			if d.Status != models.StatusCreated {
				return models.Fail(models.ErrInvalidRequest,
					fmt.Sprintf("document %d is %s", d.Number, d.Status))
			}
		}
		for _, d := range locked {
			if _, err := s.ledger.Release(ctx, d.ID); err != nil {
				return err
			}
			if err := s.setStatus(ctx, d, models.StatusCanceled, nil); err != nil {
				return err
			}
			if err := s.emit(ctx, models.EventDocumentCanceled, d, now); err != nil {
				return err
			}
		}
		docs = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AddDocumentsCanceled(len(docs))
	}
	s.logger.InfoContext(ctx, "folder canceled", "folder_id", folderID, "documents", len(docs))
	return docs, nil
}
