// Package format holds the display helpers shared by the dashboard,
// the report view and the PDF export.
package format

import (
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// NotAvailable is shown where a value cannot be computed
const NotAvailable = "N/A"

const dateLayout = "Jan 2, 2006"

// Date formats a unix timestamp (seconds) as "Apr 11, 2025" in UTC.
// A zero or negative timestamp yields "N/A".
func Date(ts int64) string {
	if ts <= 0 {
		return NotAvailable
	}
	return time.Unix(ts, 0).UTC().Format(dateLayout)
}

// DateTime formats t for "generated on" footers
func DateTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 MST")
}

// Hostname extracts the host of an absolute URL for link tables.
// Anything that does not parse as an absolute URL is returned unchanged.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

// Count formats n with thousands separators ("12,345")
func Count(n int64) string {
	return humanize.Comma(n)
}

// Percent formats v with the given number of decimals and a trailing "%"
func Percent(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64) + "%"
}

// Truncate shortens s to at most n runes, ending with "..." when cut
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
