package crawler

import "context"

// Listing represents one vehicle record kept by the pipeline.
// Optional fields are pointers so that absent values serialize as null.
type Listing struct {
	Title     string  `json:"Title"`
	Price     *int    `json:"Price"`
	Date      string  `json:"Date"`
	Location  *string `json:"Location"`
	MileageKm *int    `json:"MileageKm"`
	Link      string  `json:"Link"`
}

// Candidate holds the raw text found in one listing container
type Candidate struct {
	Title       string
	Link        string
	PriceText   string
	DateText    string
	Descriptors []string
}

// SkipReason explains why a listing container produced no candidate
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipMissingTitle SkipReason = "missing title"
	SkipMissingLink  SkipReason = "missing link"
	SkipMissingPrice SkipReason = "missing price"
	SkipMissingDate  SkipReason = "missing date"
)

// Outcome is the extraction result for one listing container:
// either a complete candidate or a skip reason, never both.
type Outcome struct {
	Candidate Candidate
	Skip      SkipReason
}

// Skipped reports whether the container was dropped
func (o Outcome) Skipped() bool {
	return o.Skip != SkipNone
}

// Selectors contains CSS selectors for the search results page
type Selectors struct {
	ListingList string
	Title       string
	Price       string
	Date        string
	Descriptors string
}

// RiyasewanaSelectors returns the selectors of the riyasewana.com results page
func RiyasewanaSelectors() Selectors {
	return Selectors{
		ListingList: "li.item.round",
		Title:       "h2.more a",
		Price:       "div.boxintxt.b",
		Date:        "div.boxintxt.s",
		Descriptors: "div.boxtext div.boxintxt",
	}
}

// Fetcher retrieves the rendered HTML of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Session is a fetcher holding resources that must be released once per run
type Session interface {
	Fetcher
	Close() error
}

// SessionOpener opens the session used for every page of one run
type SessionOpener func(ctx context.Context) (Session, error)
