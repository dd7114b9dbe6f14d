package crawler

import (
	"regexp"
	"strconv"
	"strings"
)

const negotiableMarker = "Negotiable"

var (
	// Prices are only recognized in grouped form, e.g. "Rs. 4,250,000".
	// Ungrouped amounts below 1,000 are not matched.
	groupedPricePattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+`)
	mileagePattern      = regexp.MustCompile(`(\d+)\s*\(km\)`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// ParsePrice extracts the rupee amount from a price text
func ParsePrice(text string) (int, bool) {
	if strings.Contains(text, negotiableMarker) {
		return 0, false
	}

	match := groupedPricePattern.FindString(text)
	if match == "" {
		return 0, false
	}

	price, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0, false
	}
	return price, true
}

// ParseMileage extracts the kilometre count from a descriptor such as "154,500 (km)"
func ParseMileage(text string) (int, bool) {
	match := mileagePattern.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
	if match == nil {
		return 0, false
	}

	mileage, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return mileage, true
}

// Normalize converts a raw candidate into a listing
func Normalize(c Candidate) Listing {
	listing := Listing{
		Title: c.Title,
		Date:  c.DateText,
		Link:  c.Link,
	}

	if price, ok := ParsePrice(c.PriceText); ok {
		listing.Price = &price
	}

	if len(c.Descriptors) > 0 && c.Descriptors[0] != "" {
		location := c.Descriptors[0]
		listing.Location = &location
	}

	for _, descriptor := range c.Descriptors {
		if mileage, ok := ParseMileage(descriptor); ok {
			listing.MileageKm = &mileage
			break
		}
	}

	return listing
}

// collapseSpace trims text and joins internal whitespace runs with a single space
func collapseSpace(text string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
}
