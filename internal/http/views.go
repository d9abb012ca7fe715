package http

import (
	"bankdash/internal/core"
	"bankdash/internal/services"
)

// Dashboard tabs
const (
	tabOverview     = "overview"
	tabAccounts     = "accounts"
	tabTransactions = "transactions"
)

type tabView struct {
	Name   string
	Label  string
	Icon   string
	Active bool
}

type accountView struct {
	ID           string
	Name         string
	Icon         string
	LastFour     string
	BalanceLabel string
	Balance      string
	Selected     bool
}

type transactionView struct {
	ID          string
	Date        string
	Description string
	Category    string
	Icon        string
	Amount      string
	IsCredit    bool
}

type transferOption struct {
	ID       string
	Label    string
	Selected bool
}

type transferFormView struct {
	FromOptions []transferOption
	ToOptions   []transferOption
	Amount      string
}

type dashboardView struct {
	Tab          string
	Tabs         []tabView
	Account      string
	TotalBalance string
	Accounts     []accountView
	Recent       []transactionView
	Transactions []transactionView
	ShowViewAll  bool
	Filtered     bool
	TransferForm transferFormView
}

func normalizeTab(tab string) string {
	switch tab {
	case tabAccounts, tabTransactions:
		return tab
	default:
		return tabOverview
	}
}

func newTabs(active string) []tabView {
	return []tabView{
		{Name: tabOverview, Label: "Overview", Icon: "chart", Active: active == tabOverview},
		{Name: tabAccounts, Label: "Accounts", Icon: "bank", Active: active == tabAccounts},
		{Name: tabTransactions, Label: "Transactions", Icon: "list", Active: active == tabTransactions},
	}
}

func newAccountViews(accounts []core.Account, selected string) []accountView {
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountView{
			ID:           a.ID,
			Name:         a.Name,
			Icon:         accountIcon(a.Type),
			LastFour:     a.LastFour(),
			BalanceLabel: a.Type.BalanceLabel(),
			Balance:      formatUSD(a.Balance),
			Selected:     a.ID == selected,
		})
	}
	return out
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionView{
			ID:          tx.ID,
			Date:        formatShortDate(tx.Date),
			Description: tx.Description,
			Category:    tx.Category,
			Icon:        categoryIcon(tx.Category),
			Amount:      signedAmount(tx),
			IsCredit:    tx.Type == core.CreditTx,
		})
	}
	return out
}

// newTransferForm lists every account as a source and every account but
// the source as a destination.
func newTransferForm(accounts []core.Account, from, to string) transferFormView {
	form := transferFormView{}
	for _, a := range accounts {
		label := a.Name + " - " + formatUSD(a.Balance)
		form.FromOptions = append(form.FromOptions, transferOption{ID: a.ID, Label: label, Selected: a.ID == from})
		if a.ID == from {
			continue
		}
		form.ToOptions = append(form.ToOptions, transferOption{ID: a.ID, Label: label, Selected: a.ID == to})
	}
	return form
}

func newDashboardView(sum services.Summary, all, filtered []core.Transaction, tab, account string) dashboardView {
	tab = normalizeTab(tab)
	return dashboardView{
		Tab:          tab,
		Tabs:         newTabs(tab),
		Account:      account,
		TotalBalance: formatUSD(sum.TotalBalance),
		Accounts:     newAccountViews(sum.Accounts, account),
		Recent:       newTransactionViews(core.Recent(filtered, core.RecentActivityLimit)),
		Transactions: newTransactionViews(filtered),
		ShowViewAll:  len(all) > core.RecentActivityLimit,
		Filtered:     account != "",
		TransferForm: newTransferForm(sum.Accounts, "", ""),
	}
}
