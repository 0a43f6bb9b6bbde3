// Package ledger holds the trip's money: the shared wallet split between
// members, each member's personal wallet, and the team fund kept in yen and
// Taiwan dollars.
package ledger

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/billbatista/acasinha-trip/apperror"
)

type Currency string

const (
	JPY Currency = "JPY"
	TWD Currency = "TWD"
)

func (c Currency) Valid() bool {
	return c == JPY || c == TWD
}

// Expense is an entry of the shared wallet. Amount is in yen and is split
// evenly between the participants.
type Expense struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	Payer        string    `json:"payer"`
	Participants []string  `json:"participants"`
	Date         time.Time `json:"date"`
}

type PersonalExpense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
}

type FundExpense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Unit        Currency  `json:"unit"`
	Date        time.Time `json:"date"`
}

func (e Expense) EntryID() string         { return e.ID }
func (e PersonalExpense) EntryID() string { return e.ID }
func (e FundExpense) EntryID() string     { return e.ID }

var (
	ErrEmptyDescription = apperror.Validation("description can't be empty")
	ErrInvalidAmount    = apperror.Validation("amount must be positive")
	ErrInvalidNumber    = apperror.Validation("value must be a finite number")
	ErrUnknownPayer     = apperror.Validation("payer is not a trip member")
	ErrNoParticipants   = apperror.Validation("at least one participant is required")
	ErrUnknownMember    = apperror.Validation("not a trip member")
	ErrInvalidCurrency  = apperror.Validation("unit must be JPY or TWD")
	ErrExpenseNotFound  = apperror.New(apperror.CodeNotFound, "expense not found")
)

// ExpenseInput is what a member fills in to add a shared expense.
type ExpenseInput struct {
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	Payer        string   `json:"payer"`
	Participants []string `json:"participants"`
}

func validAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidNumber
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewExpense validates the input against the roster. Participants are
// deduplicated, keeping their first position.
func NewExpense(in ExpenseInput, members []string, id string, now time.Time) (Expense, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return Expense{}, ErrEmptyDescription
	}
	if err := validAmount(in.Amount); err != nil {
		return Expense{}, err
	}
	if !slices.Contains(members, in.Payer) {
		return Expense{}, ErrUnknownPayer
	}
	participants := make([]string, 0, len(in.Participants))
	for _, p := range in.Participants {
		if !slices.Contains(members, p) {
			return Expense{}, apperror.Validation("participant " + p + " is not a trip member")
		}
		if !slices.Contains(participants, p) {
			participants = append(participants, p)
		}
	}
	if len(participants) == 0 {
		return Expense{}, ErrNoParticipants
	}

	return Expense{
		ID:           id,
		Description:  description,
		Amount:       in.Amount,
		Payer:        in.Payer,
		Participants: participants,
		Date:         now,
	}, nil
}

func NewPersonalExpense(description string, amount float64, id string, now time.Time) (PersonalExpense, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return PersonalExpense{}, ErrEmptyDescription
	}
	if err := validAmount(amount); err != nil {
		return PersonalExpense{}, err
	}
	return PersonalExpense{ID: id, Description: description, Amount: amount, Date: now}, nil
}

func NewFundExpense(description string, amount float64, unit Currency, id string, now time.Time) (FundExpense, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return FundExpense{}, ErrEmptyDescription
	}
	if err := validAmount(amount); err != nil {
		return FundExpense{}, err
	}
	if !unit.Valid() {
		return FundExpense{}, ErrInvalidCurrency
	}
	return FundExpense{ID: id, Description: description, Amount: amount, Unit: unit, Date: now}, nil
}

// ComputeBalances credits each payer with the full amount and debits every
// participant an equal fractional share. Positive means the member is owed
// money. Shares are not rounded; round only when displaying.
func ComputeBalances(expenses []Expense, members []string) map[string]float64 {
	balances := make(map[string]float64, len(members))
	for _, m := range members {
		balances[m] = 0
	}

	for _, e := range expenses {
		if len(e.Participants) == 0 {
			continue
		}
		balances[e.Payer] += e.Amount
		share := e.Amount / float64(len(e.Participants))
		for _, p := range e.Participants {
			balances[p] -= share
		}
	}

	return balances
}

// TotalSpent is the sum of every shared expense.
func TotalSpent(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

func PersonalTotal(items []PersonalExpense) float64 {
	var total float64
	for _, e := range items {
		total += e.Amount
	}
	return total
}

type entry interface {
	EntryID() string
}

// PrependExpense returns a new list with e first. The input is not modified.
func PrependExpense[T any](list []T, e T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, e)
	return append(out, list...)
}

// RemoveExpenseByID returns a new list without the entry with the given id,
// plus the removed entry.
func RemoveExpenseByID[T entry](list []T, id string) ([]T, T, bool) {
	var (
		removed T
		found   bool
	)
	out := make([]T, 0, len(list))
	for _, e := range list {
		if !found && e.EntryID() == id {
			removed, found = e, true
			continue
		}
		out = append(out, e)
	}
	return out, removed, found
}
