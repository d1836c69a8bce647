package shift

import (
	"time"
	_ "time/tzdata" // agents run in slim containers without a zoneinfo tree
)

// DefaultZone is the rotation's wall-clock zone
const DefaultZone = "Europe/Madrid"

// LoadZone resolves an IANA zone name, falling back to DefaultZone when name is empty
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	return time.LoadLocation(name)
}

// MustZone is LoadZone for package-level vars and tests
func MustZone(name string) *time.Location {
	loc, err := LoadZone(name)
	if err != nil {
		panic(err)
	}
	return loc
}
