package model

import "time"

// CounterpartyTotal is one entry of a top-N breakdown by merchant/payee.
type CounterpartyTotal struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// CategoryTotal is one entry of a top-N breakdown by category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

// AggregationResult holds the computed metrics for an aggregate query.
// Net is always SumCredit - SumDebit.
type AggregationResult struct {
	SumCredit         float64             `json:"sumCredit"`
	SumDebit          float64             `json:"sumDebit"`
	Net               float64             `json:"net"`
	Count             int                 `json:"count"`
	TopCounterparties []CounterpartyTotal `json:"topCounterparties,omitempty"`
	TopCategories     []CategoryTotal     `json:"topCategories,omitempty"`
	Currency          string              `json:"currency"`
}

// TrendBucket is one calendar period of a trend query. Start is the
// period start (day, ISO week, or month).
type TrendBucket struct {
	Start  time.Time `json:"start"`
	Credit float64   `json:"credit"`
	Debit  float64   `json:"debit"`
	Net    float64   `json:"net"`
	Count  int       `json:"count"`
}

// TransactionRecord is a full displayable transaction row for listings.
type TransactionRecord struct {
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	AccountNo   string    `json:"accountNo,omitempty"`
	Balance     float64   `json:"balance,omitempty"`
	BankName    string    `json:"bankName,omitempty"`
	Currency    string    `json:"currency,omitempty"`
}
