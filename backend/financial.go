package backend

import (
	"context"
	"slices"
	"time"

	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a portfolio transaction.
type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionDividend TransactionType = "dividend"
)

// Holding is one position in the portfolio.
type Holding struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      int64           `json:"quantity"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	ChangeAmount  decimal.Decimal `json:"changeAmount"`
	Sector        string          `json:"sector"`
}

// Transaction is one entry of the recent activity list. Quantity and Price
// are zero for dividends.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Symbol      string          `json:"symbol"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int64           `json:"quantity,omitempty"`
	Price       decimal.Decimal `json:"price,omitempty"`
	Date        time.Time       `json:"date"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
}

// Snapshot is a point-in-time portfolio summary.
type Snapshot struct {
	TotalPortfolioValue decimal.Decimal `json:"totalPortfolioValue"`
	TotalGainLoss       decimal.Decimal `json:"totalGainLoss"`
	GainLossPercent     decimal.Decimal `json:"gainLossPercent"`
	CashBalance         decimal.Decimal `json:"cashBalance"`
	Holdings            []Holding       `json:"holdings"`
	RecentTransactions  []Transaction   `json:"recentTransactions"`
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Holdings = slices.Clone(s.Holdings)
	out.RecentTransactions = slices.Clone(s.RecentTransactions)
	return out
}

const (
	refreshValueSpread    = 1000
	refreshGainLossSpread = 500
)

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// BaseSnapshot returns the fixed portfolio dataset.
func BaseSnapshot() Snapshot {
	return Snapshot{
		TotalPortfolioValue: money("125000.00"),
		TotalGainLoss:       money("8750.00"),
		GainLossPercent:     money("7.5"),
		CashBalance:         money("15000.00"),
		Holdings: []Holding{
			{ID: "1", Symbol: "AAPL", Name: "Apple Inc.", Quantity: 50, CurrentPrice: money("150.00"), TotalValue: money("7500.00"), ChangePercent: money("2.5"), ChangeAmount: money("187.50"), Sector: "Technology"},
			{ID: "2", Symbol: "MSFT", Name: "Microsoft Corporation", Quantity: 30, CurrentPrice: money("320.00"), TotalValue: money("9600.00"), ChangePercent: money("1.8"), ChangeAmount: money("172.80"), Sector: "Technology"},
			{ID: "3", Symbol: "TSLA", Name: "Tesla, Inc.", Quantity: 25, CurrentPrice: money("240.00"), TotalValue: money("6000.00"), ChangePercent: money("-1.2"), ChangeAmount: money("-72.00"), Sector: "Automotive"},
			{ID: "4", Symbol: "JPM", Name: "JPMorgan Chase & Co.", Quantity: 40, CurrentPrice: money("140.00"), TotalValue: money("5600.00"), ChangePercent: money("0.8"), ChangeAmount: money("44.80"), Sector: "Financial Services"},
		},
		RecentTransactions: []Transaction{
			{ID: "1", Type: TransactionBuy, Symbol: "AAPL", Amount: money("7500.00"), Quantity: 50, Price: money("150.00"), Date: day("2024-01-15"), Status: "completed", Description: "Purchased 50 shares of AAPL"},
			{ID: "2", Type: TransactionDividend, Symbol: "MSFT", Amount: money("120.00"), Date: day("2024-01-10"), Status: "completed", Description: "Dividend payment from MSFT"},
			{ID: "3", Type: TransactionSell, Symbol: "TSLA", Amount: money("6000.00"), Quantity: 25, Price: money("240.00"), Date: day("2024-01-08"), Status: "completed", Description: "Sold 25 shares of TSLA"},
		},
	}
}

// GetFinancialData returns the fixed snapshot, or ErrDataFetch with the
// configured failure probability.
func (s *Service) GetFinancialData(ctx context.Context) (Snapshot, error) {
	if err := s.wait(ctx, metrics.OpFinancialData, s.latency.FinancialData); err != nil {
		return Snapshot{}, err
	}
	if s.random() < s.failureRate {
		return Snapshot{}, ErrDataFetch
	}
	return BaseSnapshot(), nil
}

// RefreshFinancialData returns the snapshot with portfolio value and total
// gain/loss perturbed by independent uniform deltas of at most ±500 and ±250.
func (s *Service) RefreshFinancialData(ctx context.Context) (Snapshot, error) {
	if err := s.wait(ctx, metrics.OpRefreshFinancialData, s.latency.RefreshData); err != nil {
		return Snapshot{}, err
	}
	snap := BaseSnapshot()
	valueDelta := decimal.NewFromFloat((s.random() - 0.5) * refreshValueSpread).Round(2)
	gainDelta := decimal.NewFromFloat((s.random() - 0.5) * refreshGainLossSpread).Round(2)
	snap.TotalPortfolioValue = snap.TotalPortfolioValue.Add(valueDelta)
	snap.TotalGainLoss = snap.TotalGainLoss.Add(gainDelta)
	return snap, nil
}
