package http

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"bankdash/internal/core"
)

// formatUSD formats cents as a dollar amount with thousands separators (e.g. "$1,234.50").
func formatUSD(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := "$" + humanize.Comma(cents/100) + fmt.Sprintf(".%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// formatShortDate renders a transaction date as "Jan 15".
func formatShortDate(ts core.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format("Jan 2")
}

// signedAmount renders a transaction amount with a leading sign, "+" for
// credits and "-" for debits, always over the absolute value.
func signedAmount(tx core.Transaction) string {
	abs := tx.Amount
	if abs.Cents < 0 {
		abs.Cents = -abs.Cents
	}
	if tx.Type == core.CreditTx {
		return "+" + formatUSD(abs)
	}
	return "-" + formatUSD(abs)
}

// categoryIcon maps a transaction category to an icon name.
func categoryIcon(category string) string {
	switch strings.ToLower(category) {
	case "shopping":
		return "shopping-bag"
	case "dining":
		return "coffee"
	case "transportation":
		return "car"
	case "housing":
		return "home"
	default:
		return "wallet"
	}
}

// accountIcon maps an account type to an icon name.
func accountIcon(t core.AccountType) string {
	switch t {
	case core.Savings:
		return "piggy-bank"
	case core.Credit:
		return "credit-card"
	default:
		return "bank"
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
