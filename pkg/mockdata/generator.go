// Package mockdata builds the deterministic demo parking lot.
package mockdata

import (
	"fmt"

	"github.com/menta2k/parkwise/pkg/types"
)

// DefaultSeed is the seed used for the demo lot
const DefaultSeed = 12345

// Lot layout
const (
	SpotCount   = 60
	RowLength   = 10
	coveredRows = 2
)

const (
	lcgMultiplier = 9301
	lcgIncrement  = 49297
	lcgModulus    = 233280

	occupiedThreshold = 0.6
	coveredSurcharge  = 10.0
)

// SeededRandom is a small linear congruential generator. It is not safe for
// concurrent use; each lot build owns its own instance.
type SeededRandom struct {
	state int64
}

// NewSeededRandom creates a generator starting at seed
func NewSeededRandom(seed int64) *SeededRandom {
	return &SeededRandom{state: seed}
}

// Next advances the generator and returns a value in [0,1)
func (r *SeededRandom) Next() float64 {
	r.state = (r.state*lcgMultiplier + lcgIncrement) % lcgModulus
	if r.state < 0 {
		r.state += lcgModulus
	}
	return float64(r.state) / lcgModulus
}

// categoryRange assigns vehicle categories by spot index
type categoryRange struct {
	upTo     int
	category types.VehicleCategory
	price    float64
}

var categoryRanges = []categoryRange{
	{upTo: 36, category: types.Car, price: 40},
	{upTo: 48, category: types.TwoWheeler, price: 15},
	{upTo: 54, category: types.ThreeWheeler, price: 25},
	{upTo: SpotCount, category: types.Heavy, price: 80},
}

func categoryFor(i int) categoryRange {
	for _, r := range categoryRanges {
		if i < r.upTo {
			return r
		}
	}
	return categoryRanges[len(categoryRanges)-1]
}

// Generate builds the full lot from seed. The same seed always yields the same spots.
func Generate(seed int64) []types.ParkingSpot {
	rng := NewSeededRandom(seed)
	spots := make([]types.ParkingSpot, SpotCount)

	for i := range spots {
		row := i / RowLength
		col := i % RowLength
		cat := categoryFor(i)

		covered := row < coveredRows
		price := cat.price
		if covered {
			price += coveredSurcharge
		}

		spots[i] = types.ParkingSpot{
			ID:              fmt.Sprintf("A-%d", i+1),
			IsOccupied:      rng.Next() > occupiedThreshold,
			IsCovered:       covered,
			IsNearExit:      col < 2 || col > RowLength-3,
			DistanceToVenue: 50 + row*10 + abs(5-col)*3,
			VehicleCategory: cat.category,
			Price:           price,
		}
	}

	return spots
}

// Lot returns the demo lot built from DefaultSeed
func Lot() []types.ParkingSpot {
	return Generate(DefaultSeed)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
