// Package raffle draws beds and car seats for the trip. Admins can pin a
// member to a bed or a car before the draw; pinned members always keep their
// place and only the rest is shuffled.
package raffle

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/billbatista/acasinha-trip/apperror"
)

// Assignment places one member in one slot.
type Assignment struct {
	Slot   string `json:"slot"`
	Member string `json:"member"`
}

var ErrNoMembers = apperror.Validation("no members to draw from")

// Generate assigns members to slots as a bijection. fixed pins members to
// slots; an empty value means not pinned, and pins of members outside
// members are ignored. Pinned assignments come first in slot order, followed
// by the free members zipped with the free slots, both shuffled with rng.
func Generate(slots, members []string, fixed map[string]string, rng *rand.Rand) ([]Assignment, error) {
	if len(members) > len(slots) {
		return nil, apperror.New(apperror.CodeCapacityExceeded,
			fmt.Sprintf("%d members do not fit in %d slots", len(members), len(slots)))
	}
	if dup := firstDuplicate(slots); dup != "" {
		return nil, apperror.Validation("duplicate slot " + dup)
	}
	if dup := firstDuplicate(members); dup != "" {
		return nil, apperror.Validation("duplicate member " + dup)
	}

	holder := make(map[string]string)
	for _, m := range members {
		slot := fixed[m]
		if slot == "" {
			continue
		}
		if !slices.Contains(slots, slot) {
			return nil, apperror.Validation(fmt.Sprintf("%s is pinned to unknown slot %s", m, slot))
		}
		if other, taken := holder[slot]; taken {
			return nil, apperror.Validation(fmt.Sprintf("%s and %s are both pinned to %s", other, m, slot))
		}
		holder[slot] = m
	}

	out := make([]Assignment, 0, len(members))
	var freeSlots []string
	for _, s := range slots {
		if m, ok := holder[s]; ok {
			out = append(out, Assignment{Slot: s, Member: m})
			continue
		}
		freeSlots = append(freeSlots, s)
	}
	var freeMembers []string
	for _, m := range members {
		if fixed[m] == "" {
			freeMembers = append(freeMembers, m)
		}
	}

	rng.Shuffle(len(freeMembers), func(i, j int) { freeMembers[i], freeMembers[j] = freeMembers[j], freeMembers[i] })
	rng.Shuffle(len(freeSlots), func(i, j int) { freeSlots[i], freeSlots[j] = freeSlots[j], freeSlots[i] })
	for i := 0; i < len(freeMembers) && i < len(freeSlots); i++ {
		out = append(out, Assignment{Slot: freeSlots[i], Member: freeMembers[i]})
	}
	return out, nil
}

func firstDuplicate(values []string) string {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return v
		}
		seen[v] = true
	}
	return ""
}

// SpinWheel picks one member uniformly.
func SpinWheel(members []string, rng *rand.Rand) (string, error) {
	if len(members) == 0 {
		return "", ErrNoMembers
	}
	return members[rng.IntN(len(members))], nil
}
