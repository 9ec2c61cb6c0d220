// Package analytics projects the order history into sales reports.
//
// Every function here is a pure function of its inputs. Orders are bucketed
// by the date prefix of their created_at timestamp as stored; no timezone
// conversion is applied.
package analytics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/boddenberg/pos-bfa-go/internal/domain"
)

// TopSellerLimit is the number of products kept in a top-seller ranking.
const TopSellerLimit = 5

// Growth returns the signed percentage change from previous to current,
// rounded to one decimal place. It returns nil when previous is not positive.
func Growth(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	g := math.Round((current-previous)/previous*100*10) / 10
	return &g
}

// sumWithPrefix returns the revenue and count of orders created on a date
// starting with prefix.
func sumWithPrefix(orders []domain.Order, prefix string) (float64, int) {
	var revenue float64
	var count int
	for _, o := range orders {
		if o.CreatedAt != "" && strings.HasPrefix(o.CreatedAt, prefix) {
			revenue += o.TotalAmount
			count++
		}
	}
	return revenue, count
}

// DailyRevenueSeries returns the revenue of every day of month m, zero days included.
func DailyRevenueSeries(orders []domain.Order, m Month) []domain.DailyRevenuePoint {
	days := m.DaysIn()
	series := make([]domain.DailyRevenuePoint, 0, days)
	for d := 1; d <= days; d++ {
		revenue, _ := sumWithPrefix(orders, m.Day(d).String())
		series = append(series, domain.DailyRevenuePoint{
			Day:     strconv.Itoa(d),
			Revenue: revenue,
		})
	}
	return series
}

type productTally struct {
	id      string
	sold    int
	revenue float64
}

// TopSellers ranks the products sold in month m by revenue, highest first.
// Products missing from the catalog are left out. Ties keep the order in
// which the products first appear in the history.
func TopSellers(orders []domain.Order, products []domain.Product, m Month, limit int) []domain.TopSeller {
	prefix := m.String()

	index := make(map[string]int)
	var tallies []productTally
	for _, o := range orders {
		if !strings.HasPrefix(o.CreatedAt, prefix) {
			continue
		}
		for _, item := range o.Items {
			i, ok := index[item.ProductID]
			if !ok {
				i = len(tallies)
				index[item.ProductID] = i
				tallies = append(tallies, productTally{id: item.ProductID})
			}
			tallies[i].sold += item.Quantity
			tallies[i].revenue += item.Price * float64(item.Quantity)
		}
	}

	catalog := make(map[string]domain.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	ranked := make([]domain.TopSeller, 0, len(tallies))
	for _, t := range tallies {
		p, ok := catalog[t.id]
		if !ok {
			continue
		}
		image := ""
		if p.ImageURL != nil {
			image = *p.ImageURL
		}
		ranked = append(ranked, domain.TopSeller{
			ProductID: t.id,
			Name:      p.Name,
			Image:     image,
			Sold:      t.sold,
			Revenue:   t.revenue,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Revenue > ranked[j].Revenue
	})

	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Daily computes the statistics of day d, compared with the day before.
func Daily(orders []domain.Order, d Day) domain.DailyStats {
	prefix := d.String()
	matched := make([]domain.Order, 0)
	var revenue float64
	for _, o := range orders {
		if o.CreatedAt != "" && strings.HasPrefix(o.CreatedAt, prefix) {
			matched = append(matched, o)
			revenue += o.TotalAmount
		}
	}
	previous, _ := sumWithPrefix(orders, d.Prev().String())

	return domain.DailyStats{
		Date:       prefix,
		Revenue:    revenue,
		OrderCount: len(matched),
		Growth:     Growth(revenue, previous),
		Orders:     matched,
	}
}

// Monthly computes the statistics of month m, compared with the month before.
func Monthly(orders []domain.Order, m Month) domain.MonthlyStats {
	revenue, count := sumWithPrefix(orders, m.String())
	previous, _ := sumWithPrefix(orders, m.Prev().String())

	return domain.MonthlyStats{
		Month:      int(m.Month),
		Year:       m.Year,
		Revenue:    revenue,
		OrderCount: count,
		Growth:     Growth(revenue, previous),
	}
}

// Report computes every projection for the selected day and month.
func Report(orders []domain.Order, products []domain.Product, d Day, m Month) *domain.SalesReport {
	return &domain.SalesReport{
		Daily:         Daily(orders, d),
		Monthly:       Monthly(orders, m),
		RevenueSeries: DailyRevenueSeries(orders, m),
		TopSellers:    TopSellers(orders, products, m, TopSellerLimit),
	}
}
