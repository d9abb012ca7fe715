package core

import (
	"errors"
	"strings"
	"time"
)

// TransferErrorKind classifies a rejected transfer.
type TransferErrorKind string

const (
	KindMissingSelection  TransferErrorKind = "missing_selection"
	KindSameAccount       TransferErrorKind = "same_account"
	KindInvalidAmount     TransferErrorKind = "invalid_amount"
	KindAccountNotFound   TransferErrorKind = "account_not_found"
	KindInsufficientFunds TransferErrorKind = "insufficient_funds"
)

// Sentinels for errors.Is against a *TransferError.
var (
	ErrMissingSelection  = &TransferError{Kind: KindMissingSelection, Message: "Please select both accounts"}
	ErrSameAccount       = &TransferError{Kind: KindSameAccount, Message: "Cannot transfer to the same account"}
	ErrInvalidAmount     = &TransferError{Kind: KindInvalidAmount, Message: "Please enter a valid amount"}
	ErrAccountNotFound   = &TransferError{Kind: KindAccountNotFound, Message: "Account not found"}
	ErrInsufficientFunds = &TransferError{Kind: KindInsufficientFunds, Message: "Insufficient funds"}
)

// TransferError is a validation outcome that aborts a transfer before any mutation.
// Message is safe to show to the user.
type TransferError struct {
	Kind    TransferErrorKind
	Message string
	Cause   error
}

func (e *TransferError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TransferError) Unwrap() error { return e.Cause }

// Is matches on Kind so wrapped variants compare equal to the sentinels.
func (e *TransferError) Is(target error) bool {
	t, ok := target.(*TransferError)
	return ok && t.Kind == e.Kind
}

// IsTransferError reports whether err is a user-facing transfer rejection.
func IsTransferError(err error) (*TransferError, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func transferErr(kind *TransferError, cause error) *TransferError {
	return &TransferError{Kind: kind.Kind, Message: kind.Message, Cause: cause}
}

// TransferRequest is a transfer whose selection and amount passed the form checks.
type TransferRequest struct {
	FromAccountID string
	ToAccountID   string
	Amount        Money
}

// NewTransferRequest applies the form-level checks in order: selection,
// distinct accounts, then a finite amount greater than zero.
func NewTransferRequest(fromID, toID, rawAmount string) (TransferRequest, error) {
	fromID, toID = strings.TrimSpace(fromID), strings.TrimSpace(toID)
	if err := checkSelection(fromID, toID); err != nil {
		return TransferRequest{}, err
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return TransferRequest{}, transferErr(ErrInvalidAmount, err)
	}
	if !amount.IsPositive() {
		return TransferRequest{}, ErrInvalidAmount
	}
	return TransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: amount}, nil
}

func (r TransferRequest) Validate() error {
	if err := checkSelection(r.FromAccountID, r.ToAccountID); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func checkSelection(fromID, toID string) error {
	if fromID == "" || toID == "" {
		return ErrMissingSelection
	}
	if fromID == toID {
		return ErrSameAccount
	}
	return nil
}

// Ledger is the pair of collections a transfer rewrites together.
type Ledger struct {
	Accounts     []Account
	Transactions []Transaction
}

// ApplyTransfer returns the ledger after moving req.Amount between two accounts.
//
// The receiver is not modified. Both new transactions share one timestamp and
// are prepended credit first, so the stored order is [credit, debit, ...old].
// newID must return a fresh unique id on every call.
func (l Ledger) ApplyTransfer(req TransferRequest, newID func() string, now time.Time) (Ledger, Transfer, error) {
	if err := req.Validate(); err != nil {
		return l, Transfer{}, err
	}

	fromIdx, toIdx := -1, -1
	for i, a := range l.Accounts {
		switch a.ID {
		case req.FromAccountID:
			fromIdx = i
		case req.ToAccountID:
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return l, Transfer{}, ErrAccountNotFound
	}

	from, to := l.Accounts[fromIdx], l.Accounts[toIdx]
	if req.Amount.Cents > from.Balance.Cents {
		return l, Transfer{}, ErrInsufficientFunds
	}

	credited, err := to.Balance.CheckedAdd(req.Amount)
	if err != nil {
		return l, Transfer{}, transferErr(ErrInvalidAmount, err)
	}

	accounts := make([]Account, len(l.Accounts))
	copy(accounts, l.Accounts)
	accounts[fromIdx].Balance = from.Balance.Sub(req.Amount)
	accounts[toIdx].Balance = credited

	ts := NewTimestamp(now)
	debit := Transaction{
		ID:          newID(),
		AccountID:   from.ID,
		Date:        ts,
		Description: "Transfer to " + to.Name,
		Amount:      req.Amount,
		Category:    TransferCategory,
		Type:        Debit,
	}
	credit := Transaction{
		ID:          newID(),
		AccountID:   to.ID,
		Date:        ts,
		Description: "Transfer from " + from.Name,
		Amount:      req.Amount,
		Category:    TransferCategory,
		Type:        CreditTx,
	}

	txs := make([]Transaction, 0, len(l.Transactions)+2)
	txs = append(txs, credit, debit)
	txs = append(txs, l.Transactions...)

	transfer := Transfer{
		ID:            newID(),
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        req.Amount,
		Date:          ts,
		Status:        TransferCompleted,
	}
	return Ledger{Accounts: accounts, Transactions: txs}, transfer, nil
}
