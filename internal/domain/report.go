package domain

// ============================================================
// Sales reports
// ============================================================

// DailyRevenuePoint is the revenue of one day of the selected month.
type DailyRevenuePoint struct {
	Day     string  `json:"day"`
	Revenue float64 `json:"revenue"`
}

// TopSeller is a product ranked by the revenue it made in the selected month.
// Name and image are joined from the catalog at aggregation time.
type TopSeller struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Sold      int     `json:"sold"`
	Revenue   float64 `json:"revenue"`
}

// DailyStats summarises the orders of a single calendar day.
// Growth is nil when the previous day had no revenue.
type DailyStats struct {
	Date       string   `json:"date"`
	Revenue    float64  `json:"revenue"`
	OrderCount int      `json:"order_count"`
	Growth     *float64 `json:"growth"`
	Orders     []Order  `json:"orders"`
}

// MonthlyStats summarises the orders of a calendar month.
// Growth is nil when the previous month had no revenue.
type MonthlyStats struct {
	Month      int      `json:"month"`
	Year       int      `json:"year"`
	Revenue    float64  `json:"revenue"`
	OrderCount int      `json:"order_count"`
	Growth     *float64 `json:"growth"`
}

// SalesReport bundles every projection for one time window.
type SalesReport struct {
	Daily         DailyStats          `json:"daily"`
	Monthly       MonthlyStats        `json:"monthly"`
	RevenueSeries []DailyRevenuePoint `json:"revenue_series"`
	TopSellers    []TopSeller         `json:"top_sellers"`
}
