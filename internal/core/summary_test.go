package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTxs() []Transaction {
	return []Transaction{
		{ID: "1", AccountID: "A"},
		{ID: "2", AccountID: "B"},
		{ID: "3", AccountID: "A"},
		{ID: "4", AccountID: "ghost"},
		{ID: "5", AccountID: "A"},
		{ID: "6", AccountID: "B"},
	}
}

func ids(txs []Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterByAccount(t *testing.T) {
	txs := sampleTxs()

	all := FilterByAccount(txs, "")
	assert.Equal(t, txs, all)
	if len(all) > 0 {
		assert.Same(t, &txs[0], &all[0], "empty filter must return the input slice")
	}

	assert.Equal(t, []string{"1", "3", "5"}, ids(FilterByAccount(txs, "A")))
	assert.Equal(t, []string{"2", "6"}, ids(FilterByAccount(txs, "B")))
	assert.Empty(t, FilterByAccount(txs, "Z"))
}

func TestRecent(t *testing.T) {
	txs := sampleTxs()
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(Recent(txs, RecentActivityLimit)))
	assert.Len(t, Recent(txs[:2], RecentActivityLimit), 2)
	assert.Empty(t, Recent(txs, -1))
}

func TestTotalBalanceExcludesCredit(t *testing.T) {
	accounts := []Account{
		{ID: "1", Type: Checking, Balance: Cents(524375)},
		{ID: "2", Type: Savings, Balance: Cents(1520000)},
		{ID: "3", Type: Credit, Balance: Cents(845060)},
		{ID: "4", Type: Checking, Balance: Cents(-1000)},
	}
	assert.Equal(t, int64(2043375), TotalBalance(accounts).Cents)
	assert.Equal(t, int64(0), TotalBalance(nil).Cents)
}

func TestTotalBalanceDoesNotWrap(t *testing.T) {
	near := Cents(1 << 62)
	accounts := []Account{
		{ID: "1", Type: Checking, Balance: near},
		{ID: "2", Type: Savings, Balance: near},
		{ID: "3", Type: Savings, Balance: near},
	}
	assert.Equal(t, int64(math.MaxInt64), TotalBalance(accounts).Cents)
}

func TestFindAccount(t *testing.T) {
	accounts := []Account{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	a, ok := FindAccount(accounts, "2")
	assert.True(t, ok)
	assert.Equal(t, "b", a.Name)
	_, ok = FindAccount(accounts, "3")
	assert.False(t, ok)
}
