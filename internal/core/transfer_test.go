package core

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func twoAccounts() Ledger {
	return Ledger{
		Accounts: []Account{
			{ID: "A", Name: "Everyday Checking", Type: Checking, Balance: Cents(50000)},
			{ID: "B", Name: "High Yield Savings", Type: Savings, Balance: Cents(10000)},
			{ID: "C", Name: "Rewards Card", Type: Credit, Balance: Cents(20000)},
		},
		Transactions: []Transaction{
			{ID: "old", AccountID: "A", Description: "Coffee", Amount: Cents(450), Category: "Dining", Type: Debit},
		},
	}
}

func TestApplyTransferScenario(t *testing.T) {
	before := twoAccounts()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	after, tr, err := before.ApplyTransfer(TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: Cents(20000)}, seqIDs(), now)
	require.NoError(t, err)

	a, _ := FindAccount(after.Accounts, "A")
	b, _ := FindAccount(after.Accounts, "B")
	assert.Equal(t, int64(30000), a.Balance.Cents)
	assert.Equal(t, int64(30000), b.Balance.Cents)

	require.Len(t, after.Transactions, 3)
	credit, debit := after.Transactions[0], after.Transactions[1]
	assert.Equal(t, CreditTx, credit.Type)
	assert.Equal(t, "B", credit.AccountID)
	assert.Equal(t, "Transfer from Everyday Checking", credit.Description)
	assert.Equal(t, Debit, debit.Type)
	assert.Equal(t, "A", debit.AccountID)
	assert.Equal(t, "Transfer to High Yield Savings", debit.Description)
	for _, tx := range []Transaction{credit, debit} {
		assert.Equal(t, int64(20000), tx.Amount.Cents)
		assert.Equal(t, TransferCategory, tx.Category)
		assert.True(t, tx.Date.Equal(now))
	}
	assert.NotEqual(t, credit.ID, debit.ID)
	assert.Equal(t, "old", after.Transactions[2].ID)

	assert.Equal(t, TransferCompleted, tr.Status)
	assert.Equal(t, "A", tr.FromAccountID)
	assert.Equal(t, "B", tr.ToAccountID)
	assert.Equal(t, int64(20000), tr.Amount.Cents)

	// input ledger untouched
	assert.Equal(t, twoAccounts(), before)
}

func TestApplyTransferRejections(t *testing.T) {
	cases := []struct {
		name string
		req  TransferRequest
		want error
	}{
		{"missing source", TransferRequest{ToAccountID: "B", Amount: Cents(1)}, ErrMissingSelection},
		{"same account", TransferRequest{FromAccountID: "A", ToAccountID: "A", Amount: Cents(5000)}, ErrSameAccount},
		{"zero amount", TransferRequest{FromAccountID: "A", ToAccountID: "B"}, ErrInvalidAmount},
		{"negative amount", TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: Cents(-500)}, ErrInvalidAmount},
		{"unknown destination", TransferRequest{FromAccountID: "A", ToAccountID: "Z", Amount: Cents(1)}, ErrAccountNotFound},
		{"insufficient", TransferRequest{FromAccountID: "B", ToAccountID: "A", Amount: Cents(15000)}, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := twoAccounts()
			after, _, err := before.ApplyTransfer(tc.req, seqIDs(), time.Now())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, twoAccounts(), after)
		})
	}
}

func TestApplyTransferExactBalanceAllowed(t *testing.T) {
	after, _, err := twoAccounts().ApplyTransfer(TransferRequest{FromAccountID: "B", ToAccountID: "A", Amount: Cents(10000)}, seqIDs(), time.Now())
	require.NoError(t, err)
	b, _ := FindAccount(after.Accounts, "B")
	assert.Equal(t, int64(0), b.Balance.Cents)
}

func TestApplyTransferRejectsCreditOverflow(t *testing.T) {
	before := Ledger{Accounts: []Account{
		{ID: "A", Name: "Checking", Type: Checking, Balance: Cents(1 << 62)},
		{ID: "B", Name: "Savings", Type: Savings, Balance: Cents(math.MaxInt64 - 100)},
	}}

	after, _, err := before.ApplyTransfer(TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: Cents(1000)}, seqIDs(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.ErrorIs(t, err, ErrAmountOverflow)
	assert.Equal(t, before, after)
}

func TestNewTransferRequestOrder(t *testing.T) {
	cases := []struct {
		from, to, amount string
		want             error
	}{
		{"", "", "abc", ErrMissingSelection},
		{"A", "", "10", ErrMissingSelection},
		{"A", "A", "abc", ErrSameAccount},
		{"A", "B", "abc", ErrInvalidAmount},
		{"A", "B", "NaN", ErrInvalidAmount},
		{"A", "B", "-5", ErrInvalidAmount},
		{"A", "B", "0", ErrInvalidAmount},
		{"A", "B", "0.001", ErrInvalidAmount},
	}
	for _, tc := range cases {
		_, err := NewTransferRequest(tc.from, tc.to, tc.amount)
		assert.ErrorIs(t, err, tc.want, "%q->%q %q", tc.from, tc.to, tc.amount)
	}

	req, err := NewTransferRequest(" A ", "B", "200")
	require.NoError(t, err)
	assert.Equal(t, TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: Cents(20000)}, req)
}

func TestTransferErrorMessages(t *testing.T) {
	_, err := NewTransferRequest("A", "B", "garbage")
	te, ok := IsTransferError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidAmount, te.Kind)
	assert.Equal(t, "Please enter a valid amount", te.Message)
	assert.ErrorIs(t, err, ErrAmountFormat)

	assert.Equal(t, "Insufficient funds", ErrInsufficientFunds.Error())
	_, ok = IsTransferError(errors.New("boom"))
	assert.False(t, ok)
}

func TestTotalBalanceUnderTransfer(t *testing.T) {
	l := twoAccounts()
	start := TotalBalance(l.Accounts)
	assert.Equal(t, int64(60000), start.Cents)

	internal, _, err := l.ApplyTransfer(TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: Cents(100)}, seqIDs(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, start, TotalBalance(internal.Accounts))

	toCredit, _, err := l.ApplyTransfer(TransferRequest{FromAccountID: "A", ToAccountID: "C", Amount: Cents(100)}, seqIDs(), time.Now())
	require.NoError(t, err)
	assert.Less(t, TotalBalance(toCredit.Accounts).Cents, start.Cents)

	fromCredit, _, err := l.ApplyTransfer(TransferRequest{FromAccountID: "C", ToAccountID: "A", Amount: Cents(100)}, seqIDs(), time.Now())
	require.NoError(t, err)
	assert.Greater(t, TotalBalance(fromCredit.Accounts).Cents, start.Cents)
}
