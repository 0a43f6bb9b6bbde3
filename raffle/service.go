package raffle

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
)

const (
	Doc           = "raffle"
	SchemaVersion = 1

	EventBedsDrawn      = "raffle.beds_drawn"
	EventBedPinned      = "raffle.bed_pinned"
	EventSeatPinned     = "raffle.seat_pinned"
	EventSecretAssigned = "raffle.secret_pair_assigned"
	EventCarsShuffled   = "raffle.cars_shuffled"
	EventWheelSpun      = "raffle.wheel_spun"
)

// Document is the raffle document. An empty pin means the member is free.
type Document struct {
	SchemaVersion int               `json:"schemaVersion"`
	FixedBeds     map[string]string `json:"fixedBeds"`
	FixedSeats    map[string]string `json:"fixedSeats"`
	CarResults    *CarResult        `json:"carResults,omitempty"`
	BedResults    []BedAssignment   `json:"bedResults,omitempty"`
}

func defaultDocument() Document {
	return Document{
		SchemaVersion: SchemaVersion,
		FixedBeds:     map[string]string{},
		FixedSeats:    map[string]string{},
	}
}

var ErrNotRaffleMember = apperror.Validation("not a raffle member")

type Service struct {
	store      docstore.Store
	members    []string
	wheel      []string
	secretPair [2]string
	events     eventlogger.Recorder

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService draws among members for beds and cars and among wheel for the
// lucky wheel. secretPair names the two members AssignSecretPair seats
// next to each other; their pins are hidden from State.
func NewService(store docstore.Store, members, wheel []string, secretPair [2]string, events eventlogger.Recorder, rng *rand.Rand) *Service {
	if events == nil {
		events = eventlogger.Discard
	}
	return &Service{
		store:      store,
		members:    members,
		wheel:      wheel,
		secretPair: secretPair,
		events:     events,
		rng:        rng,
	}
}

func (s *Service) log(eventType string, data any) {
	s.events.Log(eventlogger.NewEvent(eventlogger.WithType(eventType), eventlogger.WithData(data)))
}

func (s *Service) load(ctx context.Context) (Document, error) {
	var doc Document
	if err := docstore.Load(ctx, s.store, Doc, defaultDocument(), &doc); err != nil {
		return Document{}, err
	}
	if doc.FixedBeds == nil {
		doc.FixedBeds = map[string]string{}
	}
	if doc.FixedSeats == nil {
		doc.FixedSeats = map[string]string{}
	}
	return doc, nil
}

// State returns the raffle document. Unless reveal is set, the secret pair's
// bed pins are blanked.
func (s *Service) State(ctx context.Context, reveal bool) (Document, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Document{}, err
	}
	if !reveal {
		doc.FixedBeds = maps.Clone(doc.FixedBeds)
		for _, m := range s.secretPair {
			if _, ok := doc.FixedBeds[m]; ok {
				doc.FixedBeds[m] = ""
			}
		}
	}
	return doc, nil
}

// RedactSnapshot blanks the secret pair's bed pins in a raw raffle document
// snapshot, the same way State does without reveal.
func (s *Service) RedactSnapshot(snap docstore.Snapshot) docstore.Snapshot {
	fixed, ok := snap.Data["fixedBeds"].(map[string]any)
	if !ok {
		return snap
	}
	fixed = maps.Clone(fixed)
	for _, m := range s.secretPair {
		if _, ok := fixed[m]; ok {
			fixed[m] = ""
		}
	}
	snap.Data = maps.Clone(snap.Data)
	snap.Data["fixedBeds"] = fixed
	return snap
}

func (s *Service) checkMember(member string) error {
	if !slices.Contains(s.members, member) {
		return fmt.Errorf("%s: %w", member, ErrNotRaffleMember)
	}
	return nil
}

func (s *Service) DrawBeds(ctx context.Context) ([]BedAssignment, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	beds, err := DrawBeds(s.members, doc.FixedBeds, s.rng)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, Doc, map[string]any{"bedResults": beds}); err != nil {
		return nil, fmt.Errorf("saving bed draw: %w", err)
	}

	s.log(EventBedsDrawn, beds)
	return beds, nil
}

// PinBed pins member to bed, unpinning its previous holder. An empty bed
// clears the member's pin.
func (s *Service) PinBed(ctx context.Context, member, bed string) error {
	if err := s.checkMember(member); err != nil {
		return err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	fixed, err := PinBed(doc.FixedBeds, member, bed)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, Doc, map[string]any{"fixedBeds": fixed}); err != nil {
		return fmt.Errorf("pinning bed: %w", err)
	}

	s.log(EventBedPinned, map[string]string{"member": member, "bed": bed})
	return nil
}

// PinSeat pins member to a car, or clears the pin when car is empty.
func (s *Service) PinSeat(ctx context.Context, member, car string) error {
	if err := s.checkMember(member); err != nil {
		return err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	var value any = docstore.DeleteField()
	if car != "" {
		capacity, ok := CarCapacity[car]
		if !ok {
			return ErrUnknownCar
		}
		pinned := 0
		for m, c := range doc.FixedSeats {
			if c == car && m != member && slices.Contains(s.members, m) {
				pinned++
			}
		}
		if pinned >= capacity {
			return apperror.New(apperror.CodeCapacityExceeded, fmt.Sprintf("%s already has %d pinned members", car, pinned))
		}
		value = car
	}
	if err := s.store.Update(ctx, Doc, map[string]any{"fixedSeats." + member: value}); err != nil {
		return fmt.Errorf("pinning seat: %w", err)
	}

	s.log(EventSeatPinned, map[string]string{"member": member, "car": car})
	return nil
}

// AssignSecretPair seats the secret pair on adjacent beds.
func (s *Service) AssignSecretPair(ctx context.Context) ([2]string, error) {
	if s.secretPair[0] == "" || s.secretPair[1] == "" {
		return [2]string{}, apperror.Validation("no secret pair configured")
	}
	doc, err := s.load(ctx)
	if err != nil {
		return [2]string{}, err
	}
	s.mu.Lock()
	fixed, pair := AssignSecretPair(doc.FixedBeds, s.secretPair[0], s.secretPair[1], s.rng)
	s.mu.Unlock()
	if err := s.store.Update(ctx, Doc, map[string]any{"fixedBeds": fixed}); err != nil {
		return [2]string{}, fmt.Errorf("assigning secret pair: %w", err)
	}

	s.log(EventSecretAssigned, nil)
	return pair, nil
}

func (s *Service) ShuffleCars(ctx context.Context) (CarResult, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return CarResult{}, err
	}
	s.mu.Lock()
	res, err := ShuffleCars(s.members, doc.FixedSeats, s.rng)
	s.mu.Unlock()
	if err != nil {
		return CarResult{}, err
	}
	if err := s.store.Update(ctx, Doc, map[string]any{"carResults": res}); err != nil {
		return CarResult{}, fmt.Errorf("saving car draw: %w", err)
	}

	s.log(EventCarsShuffled, res)
	return res, nil
}

// SpinWheel picks the lucky member. Nothing is stored.
func (s *Service) SpinWheel() (string, error) {
	s.mu.Lock()
	winner, err := SpinWheel(s.wheel, s.rng)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.log(EventWheelSpun, map[string]string{"winner": winner})
	return winner, nil
}
