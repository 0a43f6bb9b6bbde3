package raffle

import (
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/billbatista/acasinha-trip/apperror"
)

// BedIDs are the ten bunks: U for upper, L for lower.
var BedIDs = []string{"U1", "U2", "U3", "U4", "U5", "L1", "L2", "L3", "L4", "L5"}

var (
	upperTitles = []string{"🛸 未來感頂艙", "🌈 彩虹夢境位", "☁️ 雲端景觀首選", "🎨 藝術家上舖", "🌟 璀璨星空位"}
	lowerTitles = []string{"🍦 甜心下舖", "📖 寧靜閱讀區", "🛌 懶人極致舒適", "🍫 巧克力醇厚位", "🦄 獨角獸窩窩"}
)

// AdjacentPairs are the neighbouring bunks on the same tier.
var AdjacentPairs = [][2]string{
	{"U1", "U2"}, {"U2", "U3"}, {"U3", "U4"}, {"U4", "U5"},
	{"L1", "L2"}, {"L2", "L3"}, {"L3", "L4"}, {"L4", "L5"},
}

var ErrUnknownBed = apperror.Validation("unknown bed")

type BedAssignment struct {
	Bed    string `json:"bed"`
	Member string `json:"member"`
	Title  string `json:"title"`
}

// BedTitle is the display name of a bed, or "" for an unknown id.
func BedTitle(bed string) string {
	if len(bed) != 2 || bed[1] < '1' || bed[1] > '5' {
		return ""
	}
	idx := int(bed[1] - '1')
	switch bed[0] {
	case 'U':
		return upperTitles[idx]
	case 'L':
		return lowerTitles[idx]
	}
	return ""
}

// DrawBeds assigns every member a bed, keeping pinned members in place.
func DrawBeds(members []string, fixedBeds map[string]string, rng *rand.Rand) ([]BedAssignment, error) {
	assignments, err := Generate(BedIDs, members, fixedBeds, rng)
	if err != nil {
		return nil, err
	}
	beds := make([]BedAssignment, len(assignments))
	for i, a := range assignments {
		beds[i] = BedAssignment{Bed: a.Slot, Member: a.Member, Title: BedTitle(a.Slot)}
	}
	return beds, nil
}

// PinBed returns a copy of fixed with member pinned to bed. Whoever held bed
// before loses the pin. An empty bed removes the member's pin.
func PinBed(fixed map[string]string, member, bed string) (map[string]string, error) {
	if bed != "" && !slices.Contains(BedIDs, bed) {
		return nil, ErrUnknownBed
	}
	out := maps.Clone(fixed)
	if out == nil {
		out = make(map[string]string)
	}
	if bed != "" {
		for m, b := range out {
			if b == bed {
				out[m] = ""
			}
		}
	}
	out[member] = bed
	return out, nil
}

// AssignSecretPair pins a and b to a uniformly chosen adjacent pair of beds,
// in random order. Anyone else pinned to either bed is unpinned.
func AssignSecretPair(fixed map[string]string, a, b string, rng *rand.Rand) (map[string]string, [2]string) {
	pair := AdjacentPairs[rng.IntN(len(AdjacentPairs))]
	if rng.IntN(2) == 0 {
		pair[0], pair[1] = pair[1], pair[0]
	}
	out := maps.Clone(fixed)
	if out == nil {
		out = make(map[string]string)
	}
	for m, bed := range out {
		if bed == pair[0] || bed == pair[1] {
			out[m] = ""
		}
	}
	out[a] = pair[0]
	out[b] = pair[1]
	return out, pair
}
