package registry

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
)

// PlaceID identifies a place.
type PlaceID int64

// NoPlace is returned where no place could be found.
const NoPlace PlaceID = -1

// PlaceType categorises a place.
type PlaceType uint8

const (
	Other PlaceType = iota
	Firepit
	Shelter
	Parking
	Peak
	Bay
	AreaPlace
	NoType
)

var placeTypeNames = [...]string{
	Other:     "other",
	Firepit:   "firepit",
	Shelter:   "shelter",
	Parking:   "parking",
	Peak:      "peak",
	Bay:       "bay",
	AreaPlace: "area",
	NoType:    "no_type",
}

func (t PlaceType) String() string {
	if int(t) < len(placeTypeNames) {
		return placeTypeNames[t]
	}
	return "unknown"
}

// ErrUnknownPlaceType is returned by ParsePlaceType.
var ErrUnknownPlaceType = eris.New("unknown place type")

// ParsePlaceType maps a name such as "peak" or "PEAK" to its PlaceType.
// An empty name means NoType.
func ParsePlaceType(s string) (PlaceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NoType, nil
	}
	for i, name := range placeTypeNames {
		if name == s {
			return PlaceType(i), nil
		}
	}
	return NoType, eris.Wrapf(ErrUnknownPlaceType, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t PlaceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PlaceType) UnmarshalText(b []byte) error {
	pt, err := ParsePlaceType(string(b))
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// Place is a named point of interest.
type Place struct {
	ID    PlaceID
	Name  string
	Type  PlaceType
	Coord geo.Coord
}

// Area is a named region bounded by a polygon.
type Area struct {
	ID       area.ID
	Name     string
	Boundary []geo.Coord
}
