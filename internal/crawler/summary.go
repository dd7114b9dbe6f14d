package crawler

// Summary describes the listings of a finished run
type Summary struct {
	Count        int
	MinPrice     int
	MaxPrice     int
	AveragePrice float64
	WithMileage  int
	WithLocation int
}

// Summarize computes price statistics over the listings
func Summarize(listings []Listing) Summary {
	summary := Summary{Count: len(listings)}

	var total, priced int
	for _, l := range listings {
		if l.MileageKm != nil {
			summary.WithMileage++
		}
		if l.Location != nil {
			summary.WithLocation++
		}
		if l.Price == nil {
			continue
		}

		price := *l.Price
		if priced == 0 || price < summary.MinPrice {
			summary.MinPrice = price
		}
		if priced == 0 || price > summary.MaxPrice {
			summary.MaxPrice = price
		}
		total += price
		priced++
	}

	if priced > 0 {
		summary.AveragePrice = float64(total) / float64(priced)
	}
	return summary
}
