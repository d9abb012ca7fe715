package core

// RecentActivityLimit is the number of transactions shown on the overview.
const RecentActivityLimit = 5

// TotalBalance sums every non-credit account. Credit balances are liabilities.
func TotalBalance(accounts []Account) Money {
	var total Money
	for _, a := range accounts {
		if a.Type == Credit {
			continue
		}
		total = total.Add(a.Balance)
	}
	return total
}

// FilterByAccount returns the transactions owned by accountID, order preserved.
// An empty accountID selects everything and returns txs itself.
func FilterByAccount(txs []Transaction, accountID string) []Transaction {
	if accountID == "" {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// Recent returns at most n leading transactions.
func Recent(txs []Transaction, n int) []Transaction {
	if n < 0 {
		n = 0
	}
	if len(txs) <= n {
		return txs
	}
	return txs[:n]
}

// FindAccount looks an account up by id.
func FindAccount(accounts []Account, id string) (Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}
