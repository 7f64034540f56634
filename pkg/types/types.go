package types

import (
	"fmt"
	"strings"
)

// VehicleCategory is the closed set of vehicle kinds a spot is reserved for
type VehicleCategory string

const (
	Car          VehicleCategory = "car"
	TwoWheeler   VehicleCategory = "twoWheeler"
	ThreeWheeler VehicleCategory = "threeWheeler"
	Heavy        VehicleCategory = "heavy"
)

// Categories lists every vehicle category in display order
var Categories = []VehicleCategory{Car, TwoWheeler, ThreeWheeler, Heavy}

// Valid reports whether c is one of the known categories
func (c VehicleCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the human readable plural used on dashboards
func (c VehicleCategory) Label() string {
	switch c {
	case Car:
		return "Cars"
	case TwoWheeler:
		return "2-Wheelers"
	case ThreeWheeler:
		return "3-Wheelers"
	case Heavy:
		return "Heavy"
	}
	return string(c)
}

// ParseVehicleCategory accepts the canonical names plus a few common spellings
func ParseVehicleCategory(s string) (VehicleCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "car", "cars", "":
		return Car, nil
	case "twowheeler", "two-wheeler", "2-wheeler", "2w":
		return TwoWheeler, nil
	case "threewheeler", "three-wheeler", "3-wheeler", "3w":
		return ThreeWheeler, nil
	case "heavy", "truck", "bus":
		return Heavy, nil
	}
	return "", fmt.Errorf("unknown vehicle category %q", s)
}

// ParkingSpot is a single space in the lot. Values are never mutated after generation.
type ParkingSpot struct {
	ID              string          `json:"id"`
	IsOccupied      bool            `json:"isOccupied"`
	IsCovered       bool            `json:"isCovered"`
	IsNearExit      bool            `json:"isNearExit"`
	DistanceToVenue int             `json:"distanceToVenue"` // meters
	VehicleCategory VehicleCategory `json:"vehicleType"`
	Price           float64         `json:"price"`
}

// Preferences holds the filter criteria chosen by the user
type Preferences struct {
	VehicleCategory VehicleCategory `json:"vehicleType"`
	CoveredOnly     bool            `json:"showCovered"`
	NearExitOnly    bool            `json:"showNearExit"`
}

// ImagePayload is a decoded image ready to be sent to a vision model
type ImagePayload struct {
	MediaType string
	Data      []byte
}

// SpotLocation is the structured reply expected from the vision model
type SpotLocation struct {
	LocationDescription string `json:"locationDescription"`
}

// ErrorKind classifies a failed locate request
type ErrorKind string

const (
	InvalidFormat      ErrorKind = "InvalidFormat"
	PayloadTooLarge    ErrorKind = "PayloadTooLarge"
	ExternalCallFailed ErrorKind = "ExternalCallFailed"
)

// LocateOutcome is either a description or a typed failure, never both
type LocateOutcome struct {
	LocationDescription string    `json:"locationDescription,omitempty"`
	ErrorKind           ErrorKind `json:"errorKind,omitempty"`
	ErrorMessage        string    `json:"errorMessage,omitempty"`
}

// Success builds a successful outcome
func Success(description string) LocateOutcome {
	return LocateOutcome{LocationDescription: description}
}

// Failure builds a failed outcome
func Failure(kind ErrorKind, message string) LocateOutcome {
	return LocateOutcome{ErrorKind: kind, ErrorMessage: message}
}

// OK reports whether the outcome carries a description
func (o LocateOutcome) OK() bool {
	return o.ErrorKind == ""
}
