package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"modwallet/internal/ledger/models"
	"modwallet/pkg/platform/httputil"
	"modwallet/pkg/requestcontext"
)

// AccountService defines the account operations exposed over HTTP.
type AccountService interface {
	CreateAccount(ctx context.Context, identityNumber, countryCode string, roles []string) (*models.Account, error)
	CloseAccount(ctx context.Context, identityNumber string) error
	BlockOperations(ctx context.Context, identityNumber string, operations []string) error
	UnblockOperations(ctx context.Context, identityNumber string, operations []string) error
	GetBalance(ctx context.Context, identityNumber string) (models.BalanceSummary, error)
	GetHistory(ctx context.Context, identityNumber string, q models.HistoryQuery) ([]models.HistoryEntry, error)
	GetHistoryDates(ctx context.Context, identityNumber string, year int) ([]string, error)
}

// DocumentService defines the document lifecycle operations.
type DocumentService interface {
	Create(ctx context.Context, req models.DocumentRequest) (*models.Document, error)
	Execute(ctx context.Context, number int64) (*models.Document, error)
	Cancel(ctx context.Context, folderID int64) ([]*models.Document, error)
}

// Handler wires the ledger endpoints to the account and document services.
type Handler struct {
	accounts  AccountService
	documents DocumentService
	logger    *slog.Logger
}

// New constructs a ledger handler with its dependencies.
func New(accounts AccountService, documents DocumentService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		accounts:  accounts,
		documents: documents,
		logger:    logger,
	}
}

// Register mounts the ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/accounts", h.HandleCreateAccount)
	r.Route("/accounts/{id}", func(r chi.Router) {
		r.Put("/close", h.HandleCloseAccount)
		r.Post("/block", h.HandleBlock)
		r.Put("/unblock", h.HandleUnblock)
		r.Get("/balance", h.HandleBalance)
		r.Get("/history", h.HandleHistory)
		r.Get("/history_dates", h.HandleHistoryDates)
	})
	r.Post("/documents", h.HandleCreateDocument)
	r.Put("/documents/{id}/execute", h.HandleExecuteDocument)
	r.Put("/documents/{id}/cancel", h.HandleCancelFolder)
}

// HandleCreateAccount handles POST /accounts.
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	acc, err := h.accounts.CreateAccount(ctx, req.IdentityNumber, req.CountryCode, req.Roles)
	if err != nil {
		h.fail(ctx, w, "create account failed", err, "account_id", req.IdentityNumber)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// HandleCloseAccount handles PUT /accounts/{id}/close.
func (h *Handler) HandleCloseAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.accounts.CloseAccount(ctx, id); err != nil {
		h.fail(ctx, w, "close account failed", err, "account_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: statusSuccess})
}

// HandleBlock handles POST /accounts/{id}/block.
func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[OperationsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.accounts.BlockOperations(ctx, id, req.Operations); err != nil {
		h.fail(ctx, w, "block operations failed", err, "account_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: statusSuccess})
}

// HandleUnblock handles PUT /accounts/{id}/unblock.
func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[OperationsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.accounts.UnblockOperations(ctx, id, req.Operations); err != nil {
		h.fail(ctx, w, "unblock operations failed", err, "account_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: statusSuccess})
}

// HandleBalance handles GET /accounts/{id}/balance.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	sum, err := h.accounts.GetBalance(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get balance failed", err, "account_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBalanceResponse(sum))
}

// HandleHistory handles GET /accounts/{id}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	q, err := parseHistoryQuery(r.URL.Query().Get)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.accounts.GetHistory(ctx, id, q)
	if err != nil {
		h.fail(ctx, w, "get history failed", err, "account_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(entries))
}

// HandleHistoryDates handles GET /accounts/{id}/history_dates.
func (h *Handler) HandleHistoryDates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	year, err := parseYear(r.URL.Query().Get("year"), requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dates, err := h.accounts.GetHistoryDates(ctx, id, year)
	if err != nil {
		h.fail(ctx, w, "get history dates failed", err, "account_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryDatesResponse{Status: statusSuccess, Year: year, Dates: dates})
}

// HandleCreateDocument handles POST /documents. An invalid document is
// persisted by the service and reported here as a failure with its reason.
func (h *Handler) HandleCreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.documents.Create(ctx, req.ToModel())
	if err != nil {
		h.fail(ctx, w, "create document failed", err, "document_number", req.ID, "type", req.Type)
		return
	}

	h.logger.InfoContext(ctx, "document request handled",
		"request_id", requestID,
		"document_number", doc.Number,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, DocumentEnvelope{Status: statusSuccess, Document: toDocumentResponse(doc)})
}

// HandleExecuteDocument handles PUT /documents/{id}/execute, where id is the
// document number.
func (h *Handler) HandleExecuteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	number, err := parseNumber(chi.URLParam(r, "id"), "document id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.documents.Execute(ctx, number)
	if err != nil {
		h.fail(ctx, w, "execute document failed", err, "document_number", number)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentEnvelope{Status: statusSuccess, Document: toDocumentResponse(doc)})
}

// HandleCancelFolder handles PUT /documents/{id}/cancel, where id is the
// folder id. Every document of the folder is canceled or none is.
func (h *Handler) HandleCancelFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	folderID, err := parseNumber(chi.URLParam(r, "id"), "folder id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, err := h.documents.Cancel(ctx, folderID)
	if err != nil {
		h.fail(ctx, w, "cancel folder failed", err, "folder_id", folderID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentsEnvelope(docs))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	h.logger.DebugContext(ctx, msg, args...)
	httputil.WriteError(w, err)
}
