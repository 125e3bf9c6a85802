package document

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"modwallet/internal/ledger/models"
	"modwallet/internal/platform/tracing"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/requestcontext"
)

// Create runs the creation machine for req.Type.
//
// A document that fails a business rule is persisted as invalid with the
// failure as its reason; Create then returns that document together with a
// models.Failure error. An unknown type or a missing folder id is rejected
// before anything is stored.
func (s *Service) Create(ctx context.Context, req models.DocumentRequest) (doc *models.Document, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "document.Create",
		attribute.Int64("document_number", req.ID),
		attribute.String("type", req.Type),
	)
	defer func() {
		tracing.End(span, err)
		s.observe("create_document", start)
		if err != nil {
			s.logRejected(ctx, "create document", err,
				"document_number", req.ID,
				"type", req.Type,
			)
		}
	}()

	t, err := models.ParseDocumentType(req.Type)
	if err != nil {
		return nil, models.Fail(models.ErrInvalidDocumentType, "unsupported document type")
	}
	if req.FolderID <= 0 {
		return nil, models.Fail(models.ErrInvalidRequest, "folder_id must be positive")
	}
	m, err := s.registry.lookup(t)
	if err != nil {
		return nil, err
	}

	req.Normalize(t)
	blob, err := req.Blob()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid document params")
	}

	now := requestcontext.Now(ctx)
	c := newCreation(&req, t, blob, now)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.stores.Folders.GetOrCreate(ctx, c.doc.FolderID, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve folder")
		}
		if _, err := s.drive(ctx, m, c); err != nil {
			return err
		}
		if c.failure != "" {
			if c.doc.ID == 0 {
				return nil
			}
			return s.emit(ctx, models.EventDocumentInvalid, c.doc, now)
		}
		return s.emit(ctx, models.EventDocumentCreated, c.doc, now)
	})
	if err != nil {
		return nil, err
	}

	if c.failure != "" {
		if s.metrics != nil {
			s.metrics.IncrementDocumentInvalid(string(t), string(c.failure))
		}
		return c.doc, models.Fail(c.failure, "document is invalid")
	}

	if s.metrics != nil {
		s.metrics.IncrementDocumentCreated(string(t))
	}
	s.logger.InfoContext(ctx, "document created",
		"document_number", c.doc.Number,
		"type", t,
		"amount", c.doc.Amount.StringFixed(2),
		"folder_id", c.doc.FolderID,
	)
	return c.doc, nil
}
