package processor

import (
	"sort"
	"time"

	"fundflow/models"
)

// BuildBook assembles the funding book views for one cycle. Active loans are
// sorted by descending APY so the highest-yield positions surface first;
// offers and fills keep feed order (most recent first). Fills are lender-side
// only and capped at fillsLimit to bound memory and rendering cost.
func BuildBook(positions []models.FundingPosition, offers []models.FundingOffer, trades []models.FundingTrade, asOf time.Time, fillsLimit int) models.FundingBook {
	book := models.FundingBook{
		ActiveLoans: make([]models.LoanView, 0, len(positions)),
		OpenOffers:  make([]models.OfferView, 0, len(offers)),
		RecentFills: make([]models.FillView, 0, len(trades)),
	}

	for _, p := range positions {
		book.ActiveLoans = append(book.ActiveLoans, models.LoanView{
			CreatedAt:     p.CreatedAt,
			Amount:        p.Amount,
			APY:           models.ToAPY(p.Rate),
			PeriodDays:    p.PeriodDays,
			RemainingDays: p.RemainingDays(asOf),
			MaturesAt:     p.MaturesAt(),
		})
	}
	sort.SliceStable(book.ActiveLoans, func(i, j int) bool {
		return book.ActiveLoans[i].APY.Cmp(book.ActiveLoans[j].APY) > 0
	})

	for _, o := range offers {
		view := models.OfferView{
			CreatedAt:  o.CreatedAt,
			Amount:     o.Amount,
			Floating:   o.IsFloating(),
			PeriodDays: o.PeriodDays,
		}
		if !view.Floating {
			view.APY = models.ToAPY(o.Rate)
		}
		book.OpenOffers = append(book.OpenOffers, view)
	}

	for _, t := range trades {
		if len(book.RecentFills) >= fillsLimit {
			break
		}
		// lender-side convention applies before the filter
		if !t.Amount.IsPositive() {
			continue
		}
		book.RecentFills = append(book.RecentFills, models.FillView{
			ExecutedAt: t.CreatedAt,
			Amount:     t.Amount,
			APY:        models.ToAPY(t.Rate),
			PeriodDays: t.PeriodDays,
		})
	}

	return book
}
