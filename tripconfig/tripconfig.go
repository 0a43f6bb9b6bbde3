// Package tripconfig holds the trip-wide settings shared by every client:
// the trip dates used by the countdown and the celebration switch.
package tripconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
	"github.com/billbatista/acasinha-trip/localstore"
)

const (
	Doc           = "config"
	SchemaVersion = 1

	// DateLayout is how trip dates are stored, in the trip's local time.
	DateLayout = "2006-01-02T15:04"

	DefaultStart = "2026-03-01T02:30"
	DefaultEnd   = "2026-03-09T20:00"

	ReminderKey = "trip.reminder_dismissed"

	EventCelebrationSet = "config.celebration_set"
	EventTripDatesSet   = "config.trip_dates_set"
)

var (
	ErrInvalidDate    = apperror.Validation("date must look like 2006-01-02T15:04")
	ErrEndBeforeStart = apperror.Validation("trip can't end before it starts")
)

type Document struct {
	SchemaVersion        int    `json:"schemaVersion"`
	IsCelebrationEnabled bool   `json:"isCelebrationEnabled"`
	TripStartDate        string `json:"tripStartDate"`
	TripEndDate          string `json:"tripEndDate"`
}

func defaultDocument() Document {
	return Document{SchemaVersion: SchemaVersion, TripStartDate: DefaultStart, TripEndDate: DefaultEnd}
}

type Service struct {
	store  docstore.Store
	loc    *time.Location
	events eventlogger.Recorder
}

// NewService interprets trip dates in loc.
func NewService(store docstore.Store, loc *time.Location, events eventlogger.Recorder) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if events == nil {
		events = eventlogger.Discard
	}
	return &Service{store: store, loc: loc, events: events}
}

func (s *Service) Get(ctx context.Context) (Document, error) {
	var doc Document
	if err := docstore.Load(ctx, s.store, Doc, defaultDocument(), &doc); err != nil {
		return Document{}, err
	}
	if doc.TripStartDate == "" {
		doc.TripStartDate = DefaultStart
	}
	if doc.TripEndDate == "" {
		doc.TripEndDate = DefaultEnd
	}
	return doc, nil
}

func (s *Service) SetCelebration(ctx context.Context, enabled bool) error {
	if _, err := s.Get(ctx); err != nil {
		return err
	}
	if err := s.store.Update(ctx, Doc, map[string]any{"isCelebrationEnabled": enabled}); err != nil {
		return fmt.Errorf("setting celebration: %w", err)
	}
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventCelebrationSet),
		eventlogger.WithData(map[string]bool{"enabled": enabled}),
	))
	return nil
}

func (s *Service) parse(v string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, v, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", v, ErrInvalidDate)
	}
	return t, nil
}

func (s *Service) SetTripDates(ctx context.Context, start, end string) error {
	st, err := s.parse(start)
	if err != nil {
		return err
	}
	en, err := s.parse(end)
	if err != nil {
		return err
	}
	if en.Before(st) {
		return ErrEndBeforeStart
	}
	if _, err := s.Get(ctx); err != nil {
		return err
	}
	if err := s.store.Update(ctx, Doc, map[string]any{"tripStartDate": start, "tripEndDate": end}); err != nil {
		return fmt.Errorf("setting trip dates: %w", err)
	}
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventTripDatesSet),
		eventlogger.WithData(map[string]string{"start": start, "end": end}),
	))
	return nil
}

// Countdown is the time left until the trip starts.
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"mins"`
	Seconds int  `json:"secs"`
	Started bool `json:"started"`
}

// CountdownTo splits the time from now until start. It is zero once the trip
// has started.
func CountdownTo(start, now time.Time) Countdown {
	d := start.Sub(now)
	if d <= 0 {
		return Countdown{Started: true}
	}
	secs := int(d / time.Second)
	return Countdown{
		Days:    secs / 86400,
		Hours:   secs / 3600 % 24,
		Minutes: secs / 60 % 60,
		Seconds: secs % 60,
	}
}

func (s *Service) Countdown(ctx context.Context, now time.Time) (Countdown, error) {
	doc, err := s.Get(ctx)
	if err != nil {
		return Countdown{}, err
	}
	start, err := s.parse(doc.TripStartDate)
	if err != nil {
		return Countdown{}, err
	}
	return CountdownTo(start, now), nil
}

// ShouldShowReminder reports whether this client still gets the trip
// reminder.
func ShouldShowReminder(local localstore.Store) bool {
	v, _ := local.Get(ReminderKey)
	return v != "true"
}

func DismissReminder(local localstore.Store) {
	local.Set(ReminderKey, "true")
}
