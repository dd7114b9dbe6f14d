package crawler

import "encoding/json"

// Aggregate accumulates kept listings in page order, then document order
type Aggregate struct {
	listings []Listing
}

// NewAggregate creates an empty aggregate
func NewAggregate() *Aggregate {
	return &Aggregate{listings: []Listing{}}
}

// Add appends a listing
func (a *Aggregate) Add(l Listing) {
	a.listings = append(a.listings, l)
}

// Len returns the number of listings collected so far
func (a *Aggregate) Len() int {
	return len(a.listings)
}

// Listings returns a copy of the collected listings, never nil
func (a *Aggregate) Listings() []Listing {
	out := make([]Listing, len(a.listings))
	copy(out, a.listings)
	return out
}

// MarshalJSON encodes the aggregate as a JSON array
func (a *Aggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Listings())
}
