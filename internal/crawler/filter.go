package crawler

import "sjsage522/vehiclecrawler/config"

// PriceFilter keeps listings whose price lies within inclusive bounds
type PriceFilter struct {
	Min int
	Max int
}

// NewPriceFilter creates a filter from the criteria price range.
// A missing bound leaves that side of the range open.
func NewPriceFilter(criteria config.SearchCriteria) PriceFilter {
	minPrice, maxPrice := criteria.PriceBounds()
	return PriceFilter{Min: minPrice, Max: maxPrice}
}

// Keep reports whether the listing has a price within the range
func (f PriceFilter) Keep(l Listing) bool {
	if l.Price == nil {
		return false
	}
	return *l.Price >= f.Min && *l.Price <= f.Max
}
