package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DocumentRequest is the raw bundle a document is created from. It is kept
// verbatim (after Normalize) as the document's params blob.
type DocumentRequest struct {
	ID       int64          `json:"id"`
	FolderID int64          `json:"folder_id"`
	Type     string         `json:"type"`
	Params   DocumentParams `json:"params"`
	Target   map[string]any `json:"target,omitempty"`
}

// DocumentParams carries the money movement. Account fields hold identity
// numbers.
type DocumentParams struct {
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountID string          `json:"source_account_id,omitempty"`
	TargetAccountID string          `json:"target_account_id,omitempty"`
}

const (
	sourceMessageKey = "source_message"
	targetMessageKey = "target_message"
)

// Normalize drops the sender side for single-account documents.
func (r *DocumentRequest) Normalize(t DocumentType) {
	if t == DocumentTypeTransfer {
		return
	}
	r.Params.SourceAccountID = ""
	delete(r.Target, sourceMessageKey)
}

// Blob serializes the request for persistence.
func (r *DocumentRequest) Blob() (json.RawMessage, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal document params: %w", err)
	}
	return b, nil
}

// MessageFor reads the history message from a params blob. The sender sees
// the source message, every other party the target message.
func MessageFor(blob json.RawMessage, sender bool) string {
	if len(blob) == 0 {
		return ""
	}
	var p struct {
		Target map[string]any `json:"target"`
	}
	if err := json.Unmarshal(blob, &p); err != nil {
		return ""
	}
	key := targetMessageKey
	if sender {
		key = sourceMessageKey
	}
	if msg, ok := p.Target[key].(string); ok {
		return msg
	}
	return ""
}
