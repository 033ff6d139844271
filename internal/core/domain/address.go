package domain

// AddressKind identifies which provider index a result came from.
type AddressKind string

const (
	AddressKindRoad  AddressKind = "road"  // road-name address (도로명)
	AddressKindLot   AddressKind = "lot"   // lot-number address (지번)
	AddressKindPlace AddressKind = "place" // named place / point of interest
)

// Coordinates holds a provider coordinate pair. X is longitude, Y is latitude.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region describes the administrative hierarchy an address belongs to.
type Region struct {
	Level1   string `json:"level1"` // province / metropolitan city
	Level2   string `json:"level2"` // city / district
	Level3   string `json:"level3"` // neighborhood / township
	FullName string `json:"fullName"`
}

// AddressResult is a single geocoding candidate. Immutable once built by the
// proxy client. Identity for de-duplication is FormattedName, not ID: the
// provider does not return a stable identifier, so two distinct locations that
// format identically collapse into one. Deliberately preserved as-is.
type AddressResult struct {
	ID            string      `json:"id"`
	FormattedName string      `json:"formattedName"`
	Kind          AddressKind `json:"kind"`
	Coordinates   Coordinates `json:"coordinates"`
	Region        Region      `json:"region"`
}
