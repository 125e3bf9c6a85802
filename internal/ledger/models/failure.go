package models

import (
	"errors"

	dErrors "modwallet/pkg/domain-errors"
)

// Failure is a named business condition. Its string value is the code stored
// as a document's reason and returned to callers.
type Failure string

func (f Failure) Error() string { return string(f) }

// Reason returns the failure code.
func (f Failure) Reason() string { return string(f) }

// Account state.
const (
	ErrAccountNotFound       Failure = "AccountNotFound"
	ErrAccountClosed         Failure = "AccountClosed"
	ErrAccountBlocked        Failure = "AccountBlocked"
	ErrAccountNotBlocked     Failure = "AccountNotBlocked"
	ErrAccountTypeIsNotAgent Failure = "AccountTypeIsNotAgent"
	ErrInvalidAccountType    Failure = "InvalidAccountType"
)

// Document state.
const (
	ErrDocumentNotFound    Failure = "DocumentNotFound"
	ErrInvalidDocument     Failure = "InvalidDocument"
	ErrInvalidDocumentType Failure = "InvalidDocumentType"
	ErrInvalidRequest      Failure = "InvalidRequest"
	ErrFolderNotFound      Failure = "FolderNotFound"
)

// Transfer specific.
const (
	ErrSourceAccountNotFound Failure = "SourceAccountNotFound"
	ErrTargetAccountNotFound Failure = "TargetAccountNotFound"
	ErrSourceAccountBlocked  Failure = "SourceAccountBlocked"
	ErrTargetAccountBlocked  Failure = "TargetAccountBlocked"
	ErrSourceAccountClosed   Failure = "SourceAccountClosed"
	ErrTargetAccountClosed   Failure = "TargetAccountClosed"
	ErrSelfSelectionTransfer Failure = "SelfSelectionTransfer"
	ErrForbiddenTransfer     Failure = "ForbiddenTransfer"
	ErrInsufficientBalance   Failure = "InsufficientBalance"
	ErrTransferLimitExceeded Failure = "TransferLimitExceeded"
	ErrInvalidTransfer       Failure = "InvalidTransfer"
)

// AsFailure extracts the first Failure in err's chain.
func AsFailure(err error) (Failure, bool) {
	var f Failure
	if errors.As(err, &f) {
		return f, true
	}
	return "", false
}

// Code maps the failure to its transport category.
func (f Failure) Code() dErrors.Code {
	switch f {
	case ErrAccountNotFound, ErrDocumentNotFound, ErrFolderNotFound:
		return dErrors.CodeNotFound
	case ErrInvalidRequest, ErrInvalidDocumentType:
		return dErrors.CodeBadRequest
	case ErrInvalidAccountType, ErrInvalidDocument:
		return dErrors.CodeValidation
	default:
		return dErrors.CodeConflict
	}
}

// Fail wraps f in its category with a client-safe message. Both
// errors.Is(err, f) and dErrors.HasCode(err, f.Code()) hold for the result.
func Fail(f Failure, message string) error {
	return dErrors.Wrap(f, f.Code(), message)
}
