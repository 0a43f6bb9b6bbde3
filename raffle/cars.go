package raffle

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/billbatista/acasinha-trip/apperror"
)

const (
	Car4 = "car4"
	Car6 = "car6"
)

// CarCapacity is the number of seats per car.
var CarCapacity = map[string]int{Car4: 4, Car6: 6}

var ErrUnknownCar = apperror.Validation("car must be car4 or car6")

type CarResult struct {
	Car4 []string `json:"car4"`
	Car6 []string `json:"car6"`
}

func seatSlots() []string {
	var slots []string
	for _, car := range []string{Car4, Car6} {
		for i := range CarCapacity[car] {
			slots = append(slots, fmt.Sprintf("%s/%d", car, i+1))
		}
	}
	return slots
}

// ShuffleCars splits members between the two cars. A member pinned to a car
// is given one of its seats before the draw, and each car's list is shuffled
// at the end so pinned members are not always listed first.
func ShuffleCars(members []string, fixedSeats map[string]string, rng *rand.Rand) (CarResult, error) {
	used := make(map[string]int)
	seatPins := make(map[string]string)
	for _, m := range members {
		car := fixedSeats[m]
		if car == "" {
			continue
		}
		capacity, ok := CarCapacity[car]
		if !ok {
			return CarResult{}, ErrUnknownCar
		}
		if used[car] == capacity {
			return CarResult{}, apperror.New(apperror.CodeCapacityExceeded,
				fmt.Sprintf("more than %d members pinned to %s", capacity, car))
		}
		used[car]++
		seatPins[m] = fmt.Sprintf("%s/%d", car, used[car])
	}

	assignments, err := Generate(seatSlots(), members, seatPins, rng)
	if err != nil {
		return CarResult{}, err
	}

	res := CarResult{Car4: []string{}, Car6: []string{}}
	for _, a := range assignments {
		if strings.HasPrefix(a.Slot, Car4+"/") {
			res.Car4 = append(res.Car4, a.Member)
		} else {
			res.Car6 = append(res.Car6, a.Member)
		}
	}
	rng.Shuffle(len(res.Car4), func(i, j int) { res.Car4[i], res.Car4[j] = res.Car4[j], res.Car4[i] })
	rng.Shuffle(len(res.Car6), func(i, j int) { res.Car6[i], res.Car6[j] = res.Car6[j], res.Car6[i] })
	return res, nil
}
