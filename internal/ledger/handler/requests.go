package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"modwallet/internal/ledger/models"
	dErrors "modwallet/pkg/domain-errors"
)

// CreateAccountRequest is the body of POST /accounts.
type CreateAccountRequest struct {
	IdentityNumber string   `json:"identity_number"`
	CountryCode    string   `json:"country_code"`
	Roles          []string `json:"roles"`
}

// Validate trims the identity fields. Role and identity rules belong to the
// account service.
func (r *CreateAccountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.IdentityNumber = strings.TrimSpace(r.IdentityNumber)
	r.CountryCode = strings.ToUpper(strings.TrimSpace(r.CountryCode))
	return nil
}

// OperationsRequest is the body of the block and unblock endpoints.
type OperationsRequest struct {
	Operations []string `json:"operations"`
}

func (r *OperationsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// CreateDocumentRequest is the body of POST /documents.
type CreateDocumentRequest struct {
	ID       int64          `json:"id"`
	FolderID int64          `json:"folder_id"`
	Type     string         `json:"type"`
	Params   DocumentParams `json:"params"`
	Target   map[string]any `json:"target,omitempty"`
}

// DocumentParams is the money movement part of a document request.
type DocumentParams struct {
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountID string          `json:"source_account_id,omitempty"`
	TargetAccountID string          `json:"target_account_id,omitempty"`
}

func (r *CreateDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Params.SourceAccountID = strings.TrimSpace(r.Params.SourceAccountID)
	r.Params.TargetAccountID = strings.TrimSpace(r.Params.TargetAccountID)
	return nil
}

// ToModel builds the service request.
func (r *CreateDocumentRequest) ToModel() models.DocumentRequest {
	return models.DocumentRequest{
		ID:       r.ID,
		FolderID: r.FolderID,
		Type:     r.Type,
		Params: models.DocumentParams{
			Amount:          r.Params.Amount,
			SourceAccountID: r.Params.SourceAccountID,
			TargetAccountID: r.Params.TargetAccountID,
		},
		Target: r.Target,
	}
}

// parseHistoryQuery reads limit, start_date and end_date from the query
// string. Dates are YYYY-MM-DD.
func parseHistoryQuery(get func(string) string) (models.HistoryQuery, error) {
	var q models.HistoryQuery
	if raw := get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, models.Fail(models.ErrInvalidRequest, "limit must be a non-negative integer")
		}
		q.Limit = n
	}
	start, err := parseDate(get("start_date"), "start_date")
	if err != nil {
		return q, err
	}
	end, err := parseDate(get("end_date"), "end_date")
	if err != nil {
		return q, err
	}
	q.StartDate, q.EndDate = start, end
	return q, nil
}

func parseDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, models.Fail(models.ErrInvalidRequest, field+" must be YYYY-MM-DD")
	}
	return &t, nil
}

// parseYear defaults to the current year when raw is empty.
func parseYear(raw string, now time.Time) (int, error) {
	if raw == "" {
		return now.UTC().Year(), nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1 || y > 9999 {
		return 0, models.Fail(models.ErrInvalidRequest, "year must be a four digit number")
	}
	return y, nil
}

func parseNumber(raw, field string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, models.Fail(models.ErrInvalidRequest, field+" must be a positive integer")
	}
	return n, nil
}
