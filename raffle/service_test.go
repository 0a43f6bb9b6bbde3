package raffle

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
)

func newTestService(t *testing.T) (*Service, *eventlogger.MemoryEventLogger) {
	t.Helper()
	store := docstore.NewMemory()
	t.Cleanup(func() { store.Close() })
	events := eventlogger.NewMemoryEventLogger()
	return NewService(store, raffleMembers, raffleMembers, [2]string{"Ethan", "Alvin"}, events, testRand(11)), events
}

func TestServiceDrawBedsRespectsPins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.PinBed(ctx, "Sean", "L3"); err != nil {
		t.Fatalf("pin bed: %v", err)
	}
	if err := svc.PinBed(ctx, "Ben", "L3"); err != nil {
		t.Fatalf("pin bed: %v", err)
	}

	beds, err := svc.DrawBeds(ctx)
	if err != nil {
		t.Fatalf("draw beds: %v", err)
	}
	if beds[0].Bed != "L3" || beds[0].Member != "Ben" || beds[0].Title != "🛌 懶人極致舒適" {
		t.Fatalf("expected Ben first on L3, got %+v", beds[0])
	}

	doc, err := svc.State(ctx, true)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if doc.FixedBeds["Sean"] != "" || len(doc.BedResults) != len(raffleMembers) {
		t.Fatalf("expected Sean unpinned and draw saved, got %+v", doc)
	}
}

func TestServiceSecretPairIsHidden(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pair, err := svc.AssignSecretPair(ctx)
	if err != nil {
		t.Fatalf("assign secret pair: %v", err)
	}

	revealed, _ := svc.State(ctx, true)
	if revealed.FixedBeds["Ethan"] != pair[0] || revealed.FixedBeds["Alvin"] != pair[1] {
		t.Fatalf("expected secret pins %v, got %+v", pair, revealed.FixedBeds)
	}
	hidden, _ := svc.State(ctx, false)
	if hidden.FixedBeds["Ethan"] != "" || hidden.FixedBeds["Alvin"] != "" {
		t.Fatalf("expected secret pins hidden, got %+v", hidden.FixedBeds)
	}

	beds, err := svc.DrawBeds(ctx)
	if err != nil {
		t.Fatalf("draw beds: %v", err)
	}
	for _, b := range beds {
		if b.Member == "Ethan" && b.Bed != pair[0] {
			t.Fatalf("expected Ethan on %s, got %s", pair[0], b.Bed)
		}
	}
}

func TestServicePinSeatAndShuffle(t *testing.T) {
	ctx := context.Background()
	svc, events := newTestService(t)

	for _, m := range []string{"Sean", "Ben", "Oedi", "Wilson"} {
		if err := svc.PinSeat(ctx, m, Car4); err != nil {
			t.Fatalf("pin seat: %v", err)
		}
	}
	if err := svc.PinSeat(ctx, "Nica", Car4); !errors.Is(err, apperror.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if err := svc.PinSeat(ctx, "Wilson", ""); err != nil {
		t.Fatalf("clear seat: %v", err)
	}
	doc, _ := svc.State(ctx, true)
	if _, ok := doc.FixedSeats["Wilson"]; ok {
		t.Fatalf("expected Wilson's pin deleted, got %+v", doc.FixedSeats)
	}

	res, err := svc.ShuffleCars(ctx)
	if err != nil {
		t.Fatalf("shuffle cars: %v", err)
	}
	for _, m := range []string{"Sean", "Ben", "Oedi"} {
		if !slices.Contains(res.Car4, m) {
			t.Fatalf("expected %s in car4, got %+v", m, res)
		}
	}
	doc, _ = svc.State(ctx, true)
	if doc.CarResults == nil || len(doc.CarResults.Car6) != 6 {
		t.Fatalf("expected car results saved, got %+v", doc.CarResults)
	}
	if !slices.Contains(events.Types(), EventCarsShuffled) {
		t.Fatalf("expected cars shuffled event, got %v", events.Types())
	}
}

func TestServiceRejectsNonMembers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.PinBed(ctx, "Jennifer", "U1"); !errors.Is(err, ErrNotRaffleMember) {
		t.Fatalf("expected not raffle member, got %v", err)
	}
	if err := svc.PinSeat(ctx, "Sean", "bus"); !errors.Is(err, ErrUnknownCar) {
		t.Fatalf("expected unknown car, got %v", err)
	}
}

func TestRedactSnapshotHidesSecretPair(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if err := svc.PinBed(ctx, "Sean", "U5"); err != nil {
		t.Fatalf("pin bed: %v", err)
	}
	if _, err := svc.AssignSecretPair(ctx); err != nil {
		t.Fatalf("assign secret pair: %v", err)
	}

	snap, err := svc.store.Get(ctx, Doc)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	redacted := svc.RedactSnapshot(snap)

	fixed := redacted.Data["fixedBeds"].(map[string]any)
	if fixed["Ethan"] != "" || fixed["Alvin"] != "" {
		t.Fatalf("expected the pair blanked, got %v", fixed)
	}
	if raw := snap.Data["fixedBeds"].(map[string]any); raw["Ethan"] == "" {
		t.Fatalf("expected the source snapshot untouched, got %v", raw)
	}
	if _, pinned := fixed["Sean"]; !pinned {
		t.Fatalf("expected other pins kept, got %v", fixed)
	}
}
