// Package recommend picks the spots to highlight for a preference selection.
package recommend

import (
	"sort"
	"strconv"
	"strings"

	"github.com/menta2k/parkwise/pkg/types"
)

// Set is an unordered collection of spot IDs
type Set map[string]struct{}

// Has reports whether id is in the set
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the IDs ordered by their numeric suffix, then lexically
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, okI := idNumber(out[i])
		nj, okJ := idNumber(out[j])
		if okI && okJ && ni != nj {
			return ni < nj
		}
		return out[i] < out[j]
	})
	return out
}

// Recommend returns the free spots of the selected category matching the
// preferences. With no flag set nothing is recommended. With both flags set a
// spot must be covered and near an exit.
func Recommend(spots []types.ParkingSpot, prefs types.Preferences) Set {
	recommended := Set{}
	if !prefs.CoveredOnly && !prefs.NearExitOnly {
		return recommended
	}

	for _, spot := range spots {
		if spot.VehicleCategory != prefs.VehicleCategory || spot.IsOccupied {
			continue
		}
		if matches(spot, prefs) {
			recommended[spot.ID] = struct{}{}
		}
	}
	return recommended
}

func matches(spot types.ParkingSpot, prefs types.Preferences) bool {
	coveredMatch := prefs.CoveredOnly && spot.IsCovered
	exitMatch := prefs.NearExitOnly && spot.IsNearExit
	if prefs.CoveredOnly && prefs.NearExitOnly {
		return coveredMatch && exitMatch
	}
	return coveredMatch || exitMatch
}

func idNumber(id string) (int, bool) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	return n, err == nil
}
