package crawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sjsage522/vehiclecrawler/config"
	"sjsage522/vehiclecrawler/helpers"
)

// BuildSearchURL composes the search URL for the criteria.
// Segment order is fixed: type, make, model, city, price, condition.
func BuildSearchURL(baseURL string, criteria config.SearchCriteria) string {
	parts := []string{strings.TrimRight(baseURL, "/")}
	appendSlug := func(value string) {
		if slug := helpers.Slug(value); slug != "" {
			parts = append(parts, slug)
		}
	}

	appendSlug(criteria.VehicleType)

	for _, value := range []string{criteria.Make, criteria.Model, criteria.City} {
		if config.Selected(value) {
			appendSlug(value)
		}
	}

	if criteria.MinPrice != nil && criteria.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("price-%d-%d", *criteria.MinPrice, *criteria.MaxPrice))
	}

	if config.Selected(criteria.Condition) {
		appendSlug(criteria.Condition)
	}

	return strings.Join(parts, "/")
}

// PageURL returns the URL of the given results page; page 1 has no query suffix
func PageURL(searchURL string, page int) string {
	if page <= 1 {
		return searchURL
	}
	return searchURL + "?page=" + strconv.Itoa(page)
}

// ResolveURL resolves a possibly relative listing link against base
func ResolveURL(base *url.URL, link string) string {
	link = strings.TrimSpace(link)
	if base == nil || link == "" {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
