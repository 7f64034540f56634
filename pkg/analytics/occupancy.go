// Package analytics derives dashboard figures from the spot collection.
package analytics

import "github.com/menta2k/parkwise/pkg/types"

// CategoryOccupancy is one bar of the occupancy-by-vehicle-type chart
type CategoryOccupancy struct {
	Category  types.VehicleCategory `json:"vehicleType"`
	Name      string                `json:"name"`
	Total     int                   `json:"total"`
	Occupied  int                   `json:"occupied"`
	Available int                   `json:"available"`
}

// Occupancy summarises the whole lot
type Occupancy struct {
	Total     int     `json:"total"`
	Occupied  int     `json:"occupied"`
	Available int     `json:"available"`
	Rate      float64 `json:"rate"`
}

// Report bundles every figure shown on the dashboard
type Report struct {
	ByCategory []CategoryOccupancy `json:"byVehicleType"`
	Overall    Occupancy           `json:"overall"`
}

// ByCategory counts spots per vehicle category. Categories without spots are left out.
func ByCategory(spots []types.ParkingSpot) []CategoryOccupancy {
	counts := make(map[types.VehicleCategory]*CategoryOccupancy, len(types.Categories))
	for _, c := range types.Categories {
		counts[c] = &CategoryOccupancy{Category: c, Name: c.Label()}
	}

	for _, s := range spots {
		entry, ok := counts[s.VehicleCategory]
		if !ok {
			continue
		}
		entry.Total++
		if s.IsOccupied {
			entry.Occupied++
		}
	}

	out := make([]CategoryOccupancy, 0, len(types.Categories))
	for _, c := range types.Categories {
		entry := counts[c]
		if entry.Total == 0 {
			continue
		}
		entry.Available = entry.Total - entry.Occupied
		out = append(out, *entry)
	}
	return out
}

// Overall counts occupied and free spots across the lot
func Overall(spots []types.ParkingSpot) Occupancy {
	o := Occupancy{Total: len(spots)}
	for _, s := range spots {
		if s.IsOccupied {
			o.Occupied++
		}
	}
	o.Available = o.Total - o.Occupied
	if o.Total > 0 {
		o.Rate = float64(o.Occupied) / float64(o.Total)
	}
	return o
}

// Build computes the full dashboard report
func Build(spots []types.ParkingSpot) Report {
	return Report{
		ByCategory: ByCategory(spots),
		Overall:    Overall(spots),
	}
}
