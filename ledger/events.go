package ledger

const (
	EventExpenseAdded           = "expense.added"
	EventExpenseRemoved         = "expense.removed"
	EventPersonalExpenseAdded   = "personal_expense.added"
	EventPersonalExpenseRemoved = "personal_expense.removed"
	EventFundExpenseAdded       = "fund.expense_added"
	EventFundExpenseRemoved     = "fund.expense_removed"
	EventFundBalanceSet         = "fund.balance_set"
	EventRateSet                = "rate.set"
)

type ExpenseAddedEvent struct {
	ExpenseID    string   `json:"expense_id"`
	Payer        string   `json:"payer"`
	Amount       float64  `json:"amount"`
	Description  string   `json:"description"`
	Participants []string `json:"participants"`
}

type ExpenseRemovedEvent struct {
	ExpenseID string  `json:"expense_id"`
	Member    string  `json:"member,omitempty"`
	Amount    float64 `json:"amount"`
}

type FundExpenseEvent struct {
	ExpenseID   string   `json:"expense_id"`
	Amount      float64  `json:"amount"`
	Unit        Currency `json:"unit"`
	BalanceJPY  float64  `json:"balance_jpy"`
	BalanceTWD  float64  `json:"balance_twd"`
	Description string   `json:"description,omitempty"`
}

type FundBalanceSetEvent struct {
	BalanceJPY float64 `json:"balance_jpy"`
	BalanceTWD float64 `json:"balance_twd"`
}

type RateSetEvent struct {
	Rate float64 `json:"rate"`
}
