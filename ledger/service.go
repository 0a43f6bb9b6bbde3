package ledger

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
	"github.com/google/uuid"
)

const (
	WalletDoc          = "wallet"
	SettingsDoc        = "wallet_settings"
	PersonalWalletsDoc = "personal_wallets_v1"
	FundDoc            = "team_fund_manual_v2"

	SchemaVersion = 1
	DefaultRate   = 0.21
)

type Wallet struct {
	SchemaVersion int       `json:"schemaVersion"`
	Expenses      []Expense `json:"expenses"`
}

type Settings struct {
	SchemaVersion int     `json:"schemaVersion"`
	Rate          float64 `json:"rate"`
}

// PersonalWallets maps each member to their own expense list. Pins holds the
// PIN hashes the member package writes.
type PersonalWallets struct {
	SchemaVersion int                          `json:"schemaVersion"`
	Expenses      map[string][]PersonalExpense `json:"expenses"`
	Pins          map[string]string            `json:"pins"`
}

func defaultWallet() Wallet {
	return Wallet{SchemaVersion: SchemaVersion, Expenses: []Expense{}}
}

func defaultSettings() Settings {
	return Settings{SchemaVersion: SchemaVersion, Rate: DefaultRate}
}

func defaultPersonalWallets() PersonalWallets {
	return PersonalWallets{
		SchemaVersion: SchemaVersion,
		Expenses:      map[string][]PersonalExpense{},
		Pins:          map[string]string{},
	}
}

func defaultFund() Fund {
	return Fund{SchemaVersion: SchemaVersion, Expenses: []FundExpense{}}
}

// Service applies ledger mutations to the shared documents. Every mutation
// reads the current document and writes the result back; concurrent writers
// resolve last-write-wins.
type Service struct {
	store   docstore.Store
	members []string
	events  eventlogger.Recorder
	now     func() time.Time
	newID   func() string
}

func NewService(store docstore.Store, members []string, events eventlogger.Recorder) *Service {
	if events == nil {
		events = eventlogger.Discard
	}
	return &Service{
		store:   store,
		members: members,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

func (s *Service) Members() []string {
	return slices.Clone(s.members)
}

func (s *Service) log(eventType string, data any) {
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithData(data),
	))
}

func (s *Service) Wallet(ctx context.Context) (Wallet, error) {
	var w Wallet
	if err := docstore.Load(ctx, s.store, WalletDoc, defaultWallet(), &w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

func (s *Service) Settings(ctx context.Context) (Settings, error) {
	var st Settings
	if err := docstore.Load(ctx, s.store, SettingsDoc, defaultSettings(), &st); err != nil {
		return Settings{}, err
	}
	if st.Rate == 0 {
		st.Rate = DefaultRate
	}
	return st, nil
}

func (s *Service) PersonalWallets(ctx context.Context) (PersonalWallets, error) {
	var pw PersonalWallets
	if err := docstore.Load(ctx, s.store, PersonalWalletsDoc, defaultPersonalWallets(), &pw); err != nil {
		return PersonalWallets{}, err
	}
	if pw.Expenses == nil {
		pw.Expenses = map[string][]PersonalExpense{}
	}
	return pw, nil
}

func (s *Service) Fund(ctx context.Context) (Fund, error) {
	var f Fund
	if err := docstore.Load(ctx, s.store, FundDoc, defaultFund(), &f); err != nil {
		return Fund{}, err
	}
	return f, nil
}

// AddExpense validates the input before any read or write and prepends the
// new expense to the shared wallet.
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (Expense, error) {
	e, err := NewExpense(in, s.members, s.newID(), s.now())
	if err != nil {
		return Expense{}, err
	}
	w, err := s.Wallet(ctx)
	if err != nil {
		return Expense{}, err
	}
	updated := PrependExpense(w.Expenses, e)
	if err := s.store.Update(ctx, WalletDoc, map[string]any{"expenses": updated}); err != nil {
		return Expense{}, fmt.Errorf("adding expense: %w", err)
	}

	s.log(EventExpenseAdded, ExpenseAddedEvent{
		ExpenseID:    e.ID,
		Payer:        e.Payer,
		Amount:       e.Amount,
		Description:  e.Description,
		Participants: e.Participants,
	})
	return e, nil
}

func confirmationRequired(description string) error {
	return apperror.New(apperror.CodeConfirmationRequired, fmt.Sprintf("remove %q? resubmit with confirmation", description))
}

// RemoveExpense deletes a shared expense. Without confirmed it only returns
// a confirmation required error naming the entry.
func (s *Service) RemoveExpense(ctx context.Context, id string, confirmed bool) error {
	w, err := s.Wallet(ctx)
	if err != nil {
		return err
	}
	rest, removed, ok := RemoveExpenseByID(w.Expenses, id)
	if !ok {
		return ErrExpenseNotFound
	}
	if !confirmed {
		return confirmationRequired(removed.Description)
	}
	if err := s.store.Update(ctx, WalletDoc, map[string]any{"expenses": rest}); err != nil {
		return fmt.Errorf("removing expense: %w", err)
	}

	s.log(EventExpenseRemoved, ExpenseRemovedEvent{ExpenseID: id, Amount: removed.Amount})
	return nil
}

func (s *Service) checkMember(member string) error {
	if !slices.Contains(s.members, member) {
		return ErrUnknownMember
	}
	return nil
}

// AddPersonalExpense writes only the member's own list, so members adding
// entries at the same time do not overwrite each other.
func (s *Service) AddPersonalExpense(ctx context.Context, member, description string, amount float64) (PersonalExpense, error) {
	if err := s.checkMember(member); err != nil {
		return PersonalExpense{}, err
	}
	e, err := NewPersonalExpense(description, amount, s.newID(), s.now())
	if err != nil {
		return PersonalExpense{}, err
	}
	pw, err := s.PersonalWallets(ctx)
	if err != nil {
		return PersonalExpense{}, err
	}
	updated := PrependExpense(pw.Expenses[member], e)
	if err := s.store.Update(ctx, PersonalWalletsDoc, map[string]any{"expenses." + member: updated}); err != nil {
		return PersonalExpense{}, fmt.Errorf("adding personal expense: %w", err)
	}

	s.log(EventPersonalExpenseAdded, ExpenseAddedEvent{
		ExpenseID:   e.ID,
		Payer:       member,
		Amount:      e.Amount,
		Description: e.Description,
	})
	return e, nil
}

func (s *Service) RemovePersonalExpense(ctx context.Context, member, id string, confirmed bool) error {
	if err := s.checkMember(member); err != nil {
		return err
	}
	pw, err := s.PersonalWallets(ctx)
	if err != nil {
		return err
	}
	rest, removed, ok := RemoveExpenseByID(pw.Expenses[member], id)
	if !ok {
		return ErrExpenseNotFound
	}
	if !confirmed {
		return confirmationRequired(removed.Description)
	}
	if err := s.store.Update(ctx, PersonalWalletsDoc, map[string]any{"expenses." + member: rest}); err != nil {
		return fmt.Errorf("removing personal expense: %w", err)
	}

	s.log(EventPersonalExpenseRemoved, ExpenseRemovedEvent{ExpenseID: id, Member: member, Amount: removed.Amount})
	return nil
}

// AddFundExpense records a fund expense and lowers the matching balance in
// the same update.
func (s *Service) AddFundExpense(ctx context.Context, description string, amount float64, unit Currency) (FundExpense, error) {
	e, err := NewFundExpense(description, amount, unit, s.newID(), s.now())
	if err != nil {
		return FundExpense{}, err
	}
	f, err := s.Fund(ctx)
	if err != nil {
		return FundExpense{}, err
	}
	f = f.WithExpense(e)
	if err := s.store.Update(ctx, FundDoc, f.fields(e.Unit)); err != nil {
		return FundExpense{}, fmt.Errorf("adding fund expense: %w", err)
	}

	s.log(EventFundExpenseAdded, FundExpenseEvent{
		ExpenseID:   e.ID,
		Amount:      e.Amount,
		Unit:        e.Unit,
		BalanceJPY:  f.BalanceJPY,
		BalanceTWD:  f.BalanceTWD,
		Description: e.Description,
	})
	return e, nil
}

// RemoveFundExpense gives the entry's amount back to its unit's balance and
// drops the entry in the same update.
func (s *Service) RemoveFundExpense(ctx context.Context, id string, confirmed bool) error {
	f, err := s.Fund(ctx)
	if err != nil {
		return err
	}
	next, removed, ok := f.WithoutExpense(id)
	if !ok {
		return ErrExpenseNotFound
	}
	if !confirmed {
		return confirmationRequired(removed.Description)
	}
	if err := s.store.Update(ctx, FundDoc, next.fields(removed.Unit)); err != nil {
		return fmt.Errorf("removing fund expense: %w", err)
	}

	s.log(EventFundExpenseRemoved, FundExpenseEvent{
		ExpenseID:  id,
		Amount:     removed.Amount,
		Unit:       removed.Unit,
		BalanceJPY: next.BalanceJPY,
		BalanceTWD: next.BalanceTWD,
	})
	return nil
}

func finite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidNumber
		}
	}
	return nil
}

// SetFundBalance overwrites both balances. The expense list is kept.
func (s *Service) SetFundBalance(ctx context.Context, jpy, twd float64) error {
	if err := finite(jpy, twd); err != nil {
		return err
	}
	if _, err := s.Fund(ctx); err != nil {
		return err
	}
	if err := s.store.Update(ctx, FundDoc, map[string]any{"balanceJPY": jpy, "balanceTWD": twd}); err != nil {
		return fmt.Errorf("setting fund balance: %w", err)
	}

	s.log(EventFundBalanceSet, FundBalanceSetEvent{BalanceJPY: jpy, BalanceTWD: twd})
	return nil
}

func (s *Service) SetRate(ctx context.Context, rate float64) error {
	if err := finite(rate); err != nil {
		return err
	}
	if err := s.store.Set(ctx, SettingsDoc, Settings{SchemaVersion: SchemaVersion, Rate: rate}); err != nil {
		return fmt.Errorf("setting rate: %w", err)
	}

	s.log(EventRateSet, RateSetEvent{Rate: rate})
	return nil
}

// Summary is the shared wallet as members see it.
type Summary struct {
	Expenses []Expense          `json:"expenses"`
	Balances map[string]float64 `json:"balances"`
	Rate     float64            `json:"rate"`
	Total    float64            `json:"total"`
	TotalTWD float64            `json:"totalTWD"`
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	w, err := s.Wallet(ctx)
	if err != nil {
		return Summary{}, err
	}
	st, err := s.Settings(ctx)
	if err != nil {
		return Summary{}, err
	}
	total := TotalSpent(w.Expenses)
	return Summary{
		Expenses: w.Expenses,
		Balances: ComputeBalances(w.Expenses, s.members),
		Rate:     st.Rate,
		Total:    total,
		TotalTWD: Convert(total, st.Rate),
	}, nil
}

type PersonalSummary struct {
	Member   string            `json:"member"`
	Items    []PersonalExpense `json:"items"`
	TotalJPY float64           `json:"totalJPY"`
	TotalTWD float64           `json:"totalTWD"`
}

func (s *Service) PersonalSummary(ctx context.Context, member string) (PersonalSummary, error) {
	if err := s.checkMember(member); err != nil {
		return PersonalSummary{}, err
	}
	pw, err := s.PersonalWallets(ctx)
	if err != nil {
		return PersonalSummary{}, err
	}
	st, err := s.Settings(ctx)
	if err != nil {
		return PersonalSummary{}, err
	}
	items := pw.Expenses[member]
	if items == nil {
		items = []PersonalExpense{}
	}
	total := PersonalTotal(items)
	return PersonalSummary{Member: member, Items: items, TotalJPY: total, TotalTWD: Convert(total, st.Rate)}, nil
}
