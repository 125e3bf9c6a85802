package handler

import (
	"time"

	"modwallet/internal/ledger/models"
)

const statusSuccess = "success"

// AccountResponse is returned by POST /accounts.
type AccountResponse struct {
	Status    string   `json:"status"`
	AccountID string   `json:"account_id"`
	Country   string   `json:"country_code"`
	Roles     []string `json:"roles"`
}

// StatusResponse is returned by commands without a payload.
type StatusResponse struct {
	Status string `json:"status"`
}

// BalanceResponse is returned by GET /accounts/{id}/balance.
type BalanceResponse struct {
	Status    string `json:"status"`
	Current   string `json:"current_balance"`
	Held      string `json:"held_balance"`
	Available string `json:"available_balance"`
}

// HistoryResponse is returned by GET /accounts/{id}/history.
type HistoryResponse struct {
	Status  string         `json:"status"`
	History []HistoryEntry `json:"history"`
}

// HistoryEntry is one executed document in an account's history.
type HistoryEntry struct {
	DocumentID int64     `json:"document_id"`
	Amount     string    `json:"amount"`
	Message    string    `json:"message"`
	ExecutedAt time.Time `json:"executed_at"`
}

// HistoryDatesResponse is returned by GET /accounts/{id}/history_dates.
type HistoryDatesResponse struct {
	Status string   `json:"status"`
	Year   int      `json:"year"`
	Dates  []string `json:"dates"`
}

// DocumentResponse is the JSON shape of a document.
type DocumentResponse struct {
	ID         int64      `json:"id"`
	FolderID   int64      `json:"folder_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Amount     string     `json:"amount"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

// DocumentEnvelope wraps one document.
type DocumentEnvelope struct {
	Status   string           `json:"status"`
	Document DocumentResponse `json:"document"`
}

// DocumentsEnvelope wraps the documents of a folder.
type DocumentsEnvelope struct {
	Status    string             `json:"status"`
	Documents []DocumentResponse `json:"documents"`
}

func toAccountResponse(a *models.Account) *AccountResponse {
	roles := make([]string, len(a.Roles))
	for i, r := range a.Roles {
		roles[i] = string(r)
	}
	return &AccountResponse{
		Status:    statusSuccess,
		AccountID: a.IdentityNumber,
		Country:   a.CountryCode,
		Roles:     roles,
	}
}

func toBalanceResponse(sum models.BalanceSummary) *BalanceResponse {
	return &BalanceResponse{
		Status:    statusSuccess,
		Current:   sum.Current.StringFixed(2),
		Held:      sum.Held.StringFixed(2),
		Available: sum.Available.StringFixed(2),
	}
}

func toHistoryResponse(entries []models.HistoryEntry) *HistoryResponse {
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{
			DocumentID: e.DocumentNumber,
			Amount:     e.Amount.StringFixed(2),
			Message:    e.Message,
			ExecutedAt: e.ExecutedAt,
		}
	}
	return &HistoryResponse{Status: statusSuccess, History: out}
}

func toDocumentResponse(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.Number,
		FolderID:   int64(d.FolderID),
		Type:       string(d.Type),
		Status:     string(d.Status),
		Amount:     d.Amount.StringFixed(2),
		Reason:     d.Reason,
		CreatedAt:  d.CreatedAt,
		ExecutedAt: d.ExecutedAt,
	}
}

func toDocumentsEnvelope(docs []*models.Document) *DocumentsEnvelope {
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = toDocumentResponse(d)
	}
	return &DocumentsEnvelope{Status: statusSuccess, Documents: out}
}
