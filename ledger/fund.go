package ledger

// Fund is the team_fund_manual_v2 document. Each balance equals the balance
// an admin last set minus the fund expenses recorded in that unit since.
type Fund struct {
	SchemaVersion int           `json:"schemaVersion"`
	BalanceJPY    float64       `json:"balanceJPY"`
	BalanceTWD    float64       `json:"balanceTWD"`
	Expenses      []FundExpense `json:"expenses"`
}

func (f Fund) Balance(unit Currency) float64 {
	if unit == TWD {
		return f.BalanceTWD
	}
	return f.BalanceJPY
}

func (f Fund) withBalance(unit Currency, v float64) Fund {
	if unit == TWD {
		f.BalanceTWD = v
	} else {
		f.BalanceJPY = v
	}
	return f
}

// WithExpense records e and takes its amount out of the matching balance.
func (f Fund) WithExpense(e FundExpense) Fund {
	f = f.withBalance(e.Unit, f.Balance(e.Unit)-e.Amount)
	f.Expenses = PrependExpense(f.Expenses, e)
	return f
}

// WithoutExpense is the exact inverse of WithExpense for the entry with id.
func (f Fund) WithoutExpense(id string) (Fund, FundExpense, bool) {
	rest, removed, ok := RemoveExpenseByID(f.Expenses, id)
	if !ok {
		return f, FundExpense{}, false
	}
	f = f.withBalance(removed.Unit, f.Balance(removed.Unit)+removed.Amount)
	f.Expenses = rest
	return f, removed, true
}

// fields is the partial update that writes one unit's balance together with
// the entry list.
func (f Fund) fields(unit Currency) map[string]any {
	fields := map[string]any{"expenses": f.Expenses}
	if unit == TWD {
		fields["balanceTWD"] = f.BalanceTWD
	} else {
		fields["balanceJPY"] = f.BalanceJPY
	}
	return fields
}

// ReplayFundBalance rebuilds a unit's balance from the initial balance and
// the recorded expenses.
func ReplayFundBalance(initial float64, expenses []FundExpense, unit Currency) float64 {
	balance := initial
	for _, e := range expenses {
		if e.Unit == unit {
			balance -= e.Amount
		}
	}
	return balance
}
