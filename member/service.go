package member

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
	"github.com/billbatista/acasinha-trip/ledger"
	"github.com/billbatista/acasinha-trip/localstore"
)

const (
	ProfilesDoc = "memberProfiles"
	StatusDoc   = "teamStatus"
	BaggageDoc  = "baggage_v3"

	SchemaVersion = 1

	EventStatusSet     = "member.status_set"
	EventProfileSaved  = "member.profile_saved"
	EventPinReset      = "member.pin_reset"
	EventPhotoUnlocked = "member.photo_unlocked"
)

var (
	ErrUnknownMember = apperror.Validation("not a trip member")
	ErrUnknownStatus = apperror.Validation("unknown status")
	ErrPhotoLocked   = apperror.Validation("photo is locked, ask an admin to unlock it")
)

type Profile struct {
	Title       string `json:"title"`
	Photo       string `json:"photo"`
	IsLocked    bool   `json:"isLocked"`
	PhotoLocked bool   `json:"photoLocked"`
}

type ProfilesDocument struct {
	SchemaVersion int                `json:"schemaVersion"`
	Profiles      map[string]Profile `json:"profiles"`
}

type StatusDocument struct {
	SchemaVersion int               `json:"schemaVersion"`
	Statuses      map[string]string `json:"statuses"`
}

// pinDoc is a document holding PIN hashes in one of its map fields. The
// baggage document is checked before the personal wallets document.
type pinDoc struct {
	path  string
	field string
}

var pinDocs = []pinDoc{
	{path: BaggageDoc, field: "memberPins"},
	{path: ledger.PersonalWalletsDoc, field: "pins"},
}

type Service struct {
	store  docstore.Store
	roster Roster
	passes *Passes
	events eventlogger.Recorder
}

func NewService(store docstore.Store, roster Roster, passes *Passes, events eventlogger.Recorder) *Service {
	if events == nil {
		events = eventlogger.Discard
	}
	return &Service{store: store, roster: roster, passes: passes, events: events}
}

func (s *Service) Roster() Roster {
	return s.roster
}

func (s *Service) log(eventType, member string) {
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithData(map[string]string{"member": member}),
	))
}

func (s *Service) checkMember(member string) error {
	if !s.roster.IsMember(member) {
		return fmt.Errorf("%s: %w", member, ErrUnknownMember)
	}
	return nil
}

func (s *Service) defaultProfiles() ProfilesDocument {
	profiles := make(map[string]Profile, len(s.roster.Members))
	for _, m := range s.roster.Members {
		profiles[m] = Profile{Title: s.roster.Titles[m], Photo: s.roster.Photos[m]}
	}
	return ProfilesDocument{SchemaVersion: SchemaVersion, Profiles: profiles}
}

// Profiles returns every member's profile. Members missing from the stored
// document get their roster defaults.
func (s *Service) Profiles(ctx context.Context) (map[string]Profile, error) {
	defaults := s.defaultProfiles()
	var doc ProfilesDocument
	if err := docstore.Load(ctx, s.store, ProfilesDoc, defaults, &doc); err != nil {
		return nil, err
	}
	profiles := maps.Clone(defaults.Profiles)
	maps.Copy(profiles, doc.Profiles)
	return profiles, nil
}

func (s *Service) Statuses(ctx context.Context) (map[string]string, error) {
	var doc StatusDocument
	seed := StatusDocument{SchemaVersion: SchemaVersion, Statuses: map[string]string{}}
	if err := docstore.Load(ctx, s.store, StatusDoc, seed, &doc); err != nil {
		return nil, err
	}
	if doc.Statuses == nil {
		doc.Statuses = map[string]string{}
	}
	return doc.Statuses, nil
}

// VisibleStatuses drops members whose status is the hidden option.
func (s *Service) VisibleStatuses(ctx context.Context) (map[string]string, error) {
	statuses, err := s.Statuses(ctx)
	if err != nil {
		return nil, err
	}
	hidden := s.roster.HiddenStatus()
	maps.DeleteFunc(statuses, func(_, status string) bool { return status == "" || status == hidden })
	return statuses, nil
}

func (s *Service) SetStatus(ctx context.Context, member, status string) error {
	if err := s.checkMember(member); err != nil {
		return err
	}
	if !slices.Contains(s.roster.StatusOptions, status) {
		return ErrUnknownStatus
	}
	if _, err := s.Statuses(ctx); err != nil {
		return err
	}
	if err := s.store.Update(ctx, StatusDoc, map[string]any{"statuses." + member: status}); err != nil {
		return fmt.Errorf("setting status: %w", err)
	}

	s.log(EventStatusSet, member)
	return nil
}

// pinHash returns the member's PIN hash, or "" when no PIN is set.
func (s *Service) pinHash(ctx context.Context, member string) (string, error) {
	for _, d := range pinDocs {
		snap, err := s.store.Get(ctx, d.path)
		if err != nil {
			return "", fmt.Errorf("reading pins: %w", err)
		}
		pins, _ := snap.Data[d.field].(map[string]any)
		if hash, _ := pins[member].(string); hash != "" {
			return hash, nil
		}
	}
	return "", nil
}

func (s *Service) HasPin(ctx context.Context, member string) (bool, error) {
	hash, err := s.pinHash(ctx, member)
	return hash != "", err
}

// Authenticate passes when the member has no PIN or pin matches it. A
// mismatch writes nothing.
func (s *Service) Authenticate(ctx context.Context, member, pin string) error {
	if err := s.checkMember(member); err != nil {
		return err
	}
	hash, err := s.pinHash(ctx, member)
	if err != nil {
		return err
	}
	if hash == "" {
		return nil
	}
	return verifyPin(hash, pin)
}

// Unlock authenticates and stores a pass for scope on the client.
func (s *Service) Unlock(ctx context.Context, local localstore.Store, scope, member, pin string) error {
	if err := s.Authenticate(ctx, member, pin); err != nil {
		return err
	}
	return s.passes.Issue(local, scope, member)
}

// IsUnlocked reports whether the client may open member's scope without
// entering the PIN.
func (s *Service) IsUnlocked(ctx context.Context, local localstore.Store, scope, member string) (bool, error) {
	if s.passes.IsVerified(local, scope, member) {
		return true, nil
	}
	hasPin, err := s.HasPin(ctx, member)
	if err != nil {
		return false, err
	}
	return !hasPin, nil
}

// ProfileEdit is a member's change to their own profile. An empty Photo or
// Pin keeps the current one.
type ProfileEdit struct {
	Title string `json:"title"`
	Photo string `json:"photo"`
	Pin   string `json:"pin"`
}

// SaveProfile writes the profile and then the PIN hash to every pin document
// that exists. The writes are independent; a failure in one does not undo
// the others and all failures are returned together.
func (s *Service) SaveProfile(ctx context.Context, member string, edit ProfileEdit) (Profile, error) {
	if err := s.checkMember(member); err != nil {
		return Profile{}, err
	}
	if edit.Pin != "" {
		if err := validPin(edit.Pin); err != nil {
			return Profile{}, err
		}
	}
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return Profile{}, err
	}
	cur := profiles[member]
	photo := cur.Photo
	photoChanged := edit.Photo != "" && edit.Photo != cur.Photo
	if photoChanged {
		if cur.PhotoLocked {
			return Profile{}, ErrPhotoLocked
		}
		photo = edit.Photo
	}

	next := Profile{
		Title:       edit.Title,
		Photo:       photo,
		IsLocked:    true,
		PhotoLocked: cur.PhotoLocked || photoChanged,
	}
	if err := s.store.Update(ctx, ProfilesDoc, map[string]any{"profiles." + member: next}); err != nil {
		return Profile{}, fmt.Errorf("saving profile: %w", err)
	}
	s.log(EventProfileSaved, member)

	if edit.Pin == "" {
		return next, nil
	}
	if err := s.savePin(ctx, member, edit.Pin); err != nil {
		return next, err
	}
	return next, nil
}

func (s *Service) savePin(ctx context.Context, member, pin string) error {
	hash, err := hashPin(pin)
	if err != nil {
		return err
	}
	var (
		errs    []error
		written int
	)
	for _, d := range pinDocs {
		snap, err := s.store.Get(ctx, d.path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", d.path, err))
			continue
		}
		if !snap.Exists {
			continue
		}
		if err := s.store.Update(ctx, d.path, map[string]any{d.field + "." + member: hash}); err != nil {
			errs = append(errs, fmt.Errorf("saving pin to %s: %w", d.path, err))
			continue
		}
		written++
	}
	if written == 0 && len(errs) == 0 {
		seed := ledger.PersonalWallets{
			SchemaVersion: ledger.SchemaVersion,
			Expenses:      map[string][]ledger.PersonalExpense{},
			Pins:          map[string]string{member: hash},
		}
		if err := s.store.Set(ctx, ledger.PersonalWalletsDoc, seed); err != nil {
			errs = append(errs, fmt.Errorf("saving pin: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ResetPin clears the member's PIN from both pin documents and unlocks the
// profile. The three writes are attempted independently; a document that
// does not exist has nothing to clear.
func (s *Service) ResetPin(ctx context.Context, member string) error {
	if err := s.checkMember(member); err != nil {
		return err
	}
	writes := []struct {
		path   string
		fields map[string]any
	}{
		{BaggageDoc, map[string]any{"memberPins." + member: docstore.DeleteField()}},
		{ledger.PersonalWalletsDoc, map[string]any{"pins." + member: docstore.DeleteField()}},
		{ProfilesDoc, map[string]any{"profiles." + member + ".isLocked": false}},
	}
	var errs []error
	for _, w := range writes {
		err := s.store.Update(ctx, w.path, w.fields)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			errs = append(errs, fmt.Errorf("resetting pin in %s: %w", w.path, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.log(EventPinReset, member)
	return nil
}

// UnlockPhoto lets the member change their photo again.
func (s *Service) UnlockPhoto(ctx context.Context, member string) error {
	if err := s.checkMember(member); err != nil {
		return err
	}
	if _, err := s.Profiles(ctx); err != nil {
		return err
	}
	if err := s.store.Update(ctx, ProfilesDoc, map[string]any{"profiles." + member + ".photoLocked": false}); err != nil {
		return fmt.Errorf("unlocking photo: %w", err)
	}

	s.log(EventPhotoUnlocked, member)
	return nil
}

// Passes returns the pass issuer used for verification on clients.
func (s *Service) Passes() *Passes {
	return s.passes
}
