package cli

import (
	"fmt"
	"strings"
	"time"

	"concertbooking/entity"

	"github.com/shopspring/decimal"
)

const dateTimeLayout = "Jan 2, 2006 at 3:04 PM"

// FormatCurrency renders a dollar amount with thousands separators and at
// most two decimals, dropping trailing zeros: $50, $49.99, $1,250.5.
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	s := amount.Round(2).String()
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}

	return sign + "$" + b.String()
}

func FormatPriceRange(low, high decimal.Decimal) string {
	if low.Equal(high) {
		return FormatCurrency(low)
	}
	return FormatCurrency(low) + " - " + FormatCurrency(high)
}

func FormatTierName(t entity.TierType) string {
	return t.DisplayName()
}

func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	if plural == "" {
		return singular + "s"
	}
	return plural
}

func FormatTicketCount(count int) string {
	return fmt.Sprintf("%d %s", count, Pluralize(count, "ticket", ""))
}

func FormatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}
