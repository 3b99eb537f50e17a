// Package search filters the coupon corpus by free-text query.
package search

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

// ErrMissingQuery indicates an empty or whitespace-only search query.
var ErrMissingQuery = eris.New("missing query string")

// candidate pairs a coupon with its derived searchable fields and parsed
// expiry. It never leaves this package; callers only see plain coupons.
type candidate struct {
	coupon model.Coupon
	fields []string
	expiry time.Time
	hasExp bool
}

// Search returns coupons where any query token is a substring of any derived
// field. Tokens split on whitespace and match case-insensitively; one token
// hit is enough. sortDir "asc" or "desc" orders matches by parsed expiry
// date with unparseable dates last; any other value keeps corpus order.
func Search(coupons []model.Coupon, query, sortDir string) ([]model.Coupon, error) {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil, eris.Wrap(ErrMissingQuery, "search")
	}

	var matches []candidate
	for _, c := range coupons {
		cand := derive(c)
		if anyTokenMatches(tokens, cand.fields) {
			matches = append(matches, cand)
		}
	}

	if sortDir == "asc" || sortDir == "desc" {
		slices.SortStableFunc(matches, func(a, b candidate) int {
			switch {
			case a.hasExp && b.hasExp:
				if sortDir == "desc" {
					return b.expiry.Compare(a.expiry)
				}
				return a.expiry.Compare(b.expiry)
			case a.hasExp:
				return -1
			case b.hasExp:
				return 1
			default:
				return 0
			}
		})
	}

	results := make([]model.Coupon, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.coupon)
	}
	return results, nil
}

func anyTokenMatches(tokens, fields []string) bool {
	for _, tok := range tokens {
		for _, f := range fields {
			if strings.Contains(f, tok) {
				return true
			}
		}
	}
	return false
}

// derive builds the searchable field set: lowercased platform, category and
// value, plus the RFC3339 form of the expiry date when it parses.
func derive(c model.Coupon) candidate {
	cand := candidate{
		coupon: c,
		fields: []string{
			strings.ToLower(c.Platform),
			strings.ToLower(c.Category),
			strings.ToLower(c.Value),
		},
	}
	if t, ok := ParseExpiry(c.ExpiryDate); ok {
		cand.expiry = t
		cand.hasExp = true
		cand.fields = append(cand.fields, strings.ToLower(t.UTC().Format(time.RFC3339)))
	}
	return cand
}

// ParseExpiry normalizes the expiry representations the store can hold:
// a date-only ISO string, a full RFC3339 timestamp, or epoch seconds.
func ParseExpiry(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}
