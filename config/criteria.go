package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"sjsage522/vehiclecrawler/helpers"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
)

// AnyValue is the sentinel meaning "do not narrow the search by this field"
const AnyValue = "Any"

// Criteria defaults, applied once at load time
const (
	DefaultVehicleType = "cars"
	DefaultMake        = "toyota"
	DefaultModel       = "aqua"
	DefaultCity        = AnyValue
	DefaultMinPrice    = 0
	DefaultMaxPrice    = 999999999
	DefaultCondition   = AnyValue
	DefaultPages       = 5
)

// SearchCriteria drives URL construction and price filtering for one run
type SearchCriteria struct {
	VehicleType string `json:"vtype"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	City        string `json:"city"`
	MinPrice    *int   `json:"min_price"`
	MaxPrice    *int   `json:"max_price"`
	Condition   string `json:"condition"`
	Pages       int    `json:"pages"`
}

// DefaultCriteria returns the criteria used when no config file exists
func DefaultCriteria() SearchCriteria {
	return SearchCriteria{
		VehicleType: DefaultVehicleType,
		Make:        DefaultMake,
		Model:       DefaultModel,
		City:        DefaultCity,
		MinPrice:    intPtr(DefaultMinPrice),
		MaxPrice:    intPtr(DefaultMaxPrice),
		Condition:   DefaultCondition,
		Pages:       DefaultPages,
	}
}

// LoadCriteria reads the criteria JSON at path and fills every missing or
// invalid field with its default. The returned error is a configuration
// error describing why defaults were used; the criteria are always usable.
func LoadCriteria(path string) (SearchCriteria, error) {
	criteria := DefaultCriteria()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return criteria, crawlerrors.NewConfiguration(path, "config file not found, using defaults", err)
		}
		return criteria, crawlerrors.NewConfiguration(path, "failed to read config file, using defaults", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return criteria, crawlerrors.NewConfiguration(path, "malformed config file, using defaults", err)
	}

	criteria.VehicleType = stringField(raw["vtype"], DefaultVehicleType)
	criteria.Make = stringField(raw["make"], DefaultMake)
	criteria.Model = stringField(raw["model"], DefaultModel)
	criteria.City = stringField(raw["city"], DefaultCity)
	criteria.Condition = stringField(raw["condition"], DefaultCondition)
	criteria.MinPrice = intPtr(intField(raw["min_price"], DefaultMinPrice))
	criteria.MaxPrice = intPtr(intField(raw["max_price"], DefaultMaxPrice))
	criteria.Pages = max(1, intField(raw["pages"], DefaultPages))

	return criteria, nil
}

// Validate rejects criteria that cannot match any listing
func (c SearchCriteria) Validate() error {
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return crawlerrors.NewValidation("min_price", "min_price cannot be greater than max_price")
	}
	if c.Pages < 1 {
		return crawlerrors.NewValidation("pages", "pages must be at least 1")
	}
	if strings.TrimSpace(c.VehicleType) == "" {
		return crawlerrors.NewValidation("vtype", "vehicle type is required")
	}
	if helpers.Slug(c.VehicleType) == "" {
		return crawlerrors.NewValidation("vtype", "vehicle type has no usable characters")
	}
	return nil
}

// PriceBounds returns the inclusive price range; an absent bound is open
func (c SearchCriteria) PriceBounds() (int, int) {
	lo, hi := 0, math.MaxInt
	if c.MinPrice != nil {
		lo = *c.MinPrice
	}
	if c.MaxPrice != nil {
		hi = *c.MaxPrice
	}
	return lo, hi
}

// Selected reports whether a criteria value narrows the search
func Selected(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && !strings.EqualFold(value, AnyValue)
}

func stringField(raw json.RawMessage, fallback string) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return fallback
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// intField accepts JSON numbers and numeric strings, as written by the config form.
// Integral floats such as 2.0 or 1e6 are accepted; fractional values are not.
func intField(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := strconv.Atoi(n.String()); err == nil {
			return v
		}
		if v, ok := integralFloat(n); ok {
			return v
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}

	return fallback
}

func integralFloat(n json.Number) (int, bool) {
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

func intPtr(v int) *int {
	return &v
}
