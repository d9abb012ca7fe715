package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
	Credit   AccountType = "credit"
)

const (
	Debit    TransactionType = "debit"
	CreditTx TransactionType = "credit"
)

const (
	TransferCompleted TransferStatus = "completed"
	TransferPending   TransferStatus = "pending"
)

// TransferCategory is the category assigned to both legs of a transfer.
const TransferCategory = "Transfer"

// timestampLayout matches JavaScript's Date.toISOString output.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type (
	AccountType     string
	TransactionType string
	TransferStatus  string

	Timestamp struct {
		time.Time
	}

	Account struct {
		ID            string      `json:"id"`
		Name          string      `json:"name"`
		Type          AccountType `json:"type"`
		Balance       Money       `json:"balance"`
		AccountNumber string      `json:"accountNumber"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		AccountID   string          `json:"accountId"`
		Date        Timestamp       `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Type        TransactionType `json:"type"`
	}

	// Transfer describes a completed movement between two accounts.
	Transfer struct {
		ID            string         `json:"id"`
		FromAccountID string         `json:"fromAccountId"`
		ToAccountID   string         `json:"toAccountId"`
		Amount        Money          `json:"amount"`
		Date          Timestamp      `json:"date"`
		Status        TransferStatus `json:"status"`
	}
)

var (
	ErrEmptyAccountID     = errors.New("empty account id")
	ErrEmptyAccountName   = errors.New("empty account name")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrDuplicateAccountID = errors.New("duplicate account id")
	ErrEmptyTransactionID = errors.New("empty transaction id")
	ErrInvalidTxType      = errors.New("invalid transaction type")
	ErrNegativeAmount     = errors.New("negative amount")
	ErrInvalidTimestamp   = errors.New("invalid timestamp")
	ErrIncompleteTransfer = errors.New("incomplete transfer")
)

// NewTimestamp truncates t to millisecond precision in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// ParseTimestamp accepts any RFC 3339 timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return NewTimestamp(t), nil
}

func (ts Timestamp) String() string {
	return ts.UTC().Format(timestampLayout)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.String() + `"`), nil
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Credit:
		return true
	}
	return false
}

// BalanceLabel is the caption shown above an account's balance.
func (t AccountType) BalanceLabel() string {
	if t == Credit {
		return "Available Credit"
	}
	return "Current Balance"
}

func (t TransactionType) IsValid() bool {
	return t == Debit || t == CreditTx
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyAccountID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, a.Type)
	}
	return nil
}

// LastFour returns the trailing four characters of the account number.
func (a Account) LastFour() string {
	r := []rune(a.AccountNumber)
	if len(r) <= 4 {
		return string(r)
	}
	return string(r[len(r)-4:])
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyTransactionID
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTxType, t.Type)
	}
	if t.Amount.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Validate checks a transfer record received from outside the ledger.
func (t Transfer) Validate() error {
	if t.ID == "" || t.FromAccountID == "" || t.ToAccountID == "" {
		return ErrIncompleteTransfer
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s", ErrIncompleteTransfer, t.Amount)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrIncompleteTransfer)
	}
	return nil
}

// ValidateAccounts checks every account and the uniqueness of ids.
func ValidateAccounts(accounts []Account) error {
	seen := make(map[string]struct{}, len(accounts))
	for i, a := range accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %d: %w", i, err)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateAccountID, a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// ValidateTransactions checks each record independently. Account references are not resolved.
func ValidateTransactions(txs []Transaction) error {
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}
