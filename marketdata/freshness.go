package marketdata

import "time"

// Freshness windows for the two main key classes. Quotes move constantly
// while the market trades; statement data changes quarterly.
const (
	// QuoteTTLTrading applies while the US market is open.
	QuoteTTLTrading = 5 * time.Minute
	// QuoteTTLClosed applies outside trading hours: the last print holds.
	QuoteTTLClosed = time.Hour
	// FinancialsTTL applies to statement and ratio data.
	FinancialsTTL = 24 * time.Hour
)

// newYork resolves lazily so environments without tzdata fall back to a
// fixed UTC-5 approximation instead of failing.
var newYork = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}()

// MarketOpen reports whether the US equity market is in its regular
// session (Mon-Fri 09:30-16:00 Eastern). Holidays are not modelled; a
// holiday just means a slightly stale-safe short TTL.
func MarketOpen(now time.Time) bool {
	et := now.In(newYork)
	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}

// QuoteTTL returns the cache TTL for a quote fetched at now: short while
// the market trades, long while it is closed. Callers pass the result to
// the cache, which enforces whatever it is given.
func QuoteTTL(now time.Time) time.Duration {
	if MarketOpen(now) {
		return QuoteTTLTrading
	}
	return QuoteTTLClosed
}
