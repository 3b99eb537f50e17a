// Package match scores the coupon corpus against a user's stated preferences.
package match

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Amrutha-01/swaply-backend/internal/model"
	"github.com/Amrutha-01/swaply-backend/internal/store"
)

// ErrUserNotFound indicates a match was requested for an unknown user.
var ErrUserNotFound = eris.New("user not found")

// Platform matches dominate category matches. The weights intentionally do
// not sum to 1.0; both hits score 95, not 100.
const (
	platformWeight = 0.8
	categoryWeight = 0.15
)

// Match scores candidates against the preferences and returns relevant
// coupons ordered by soonest expiry. A coupon owned by ownerUID never
// matches, and a coupon matching neither preference set is dropped. Ties
// keep corpus order; the input slice is never mutated.
func Match(candidates []model.Coupon, ownerUID string, prefs model.Preferences) []model.MatchResult {
	if prefs.Empty() {
		return []model.MatchResult{}
	}

	results := make([]model.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.OwnerUID == ownerUID {
			continue
		}
		platformHit := slices.Contains(prefs.Platforms, c.Platform)
		categoryHit := slices.Contains(prefs.Categories, c.Category)
		if !platformHit && !categoryHit {
			continue
		}
		results = append(results, model.MatchResult{
			Coupon: c,
			Score:  score(platformHit, categoryHit),
		})
	}

	slices.SortStableFunc(results, func(a, b model.MatchResult) int {
		return compareExpiry(a.ExpiryDate, b.ExpiryDate)
	})
	return results
}

// ForUser loads the user's preferences and matches the supplied corpus
// against them. Users with no preferences configured match nothing.
func ForUser(ctx context.Context, s store.Store, uid string) ([]model.MatchResult, error) {
	user, err := s.GetUser(ctx, uid)
	if err != nil {
		return nil, eris.Wrapf(err, "match: load user %s", uid)
	}
	if user == nil {
		return nil, eris.Wrapf(ErrUserNotFound, "match: %s", uid)
	}

	coupons, err := s.ListCoupons(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "match: list coupons")
	}

	return Match(coupons, uid, user.Preferences()), nil
}

func score(platformHit, categoryHit bool) int {
	var w float64
	if platformHit {
		w += platformWeight
	}
	if categoryHit {
		w += categoryWeight
	}
	return int(math.Round(w * 100))
}

// compareExpiry orders parseable dates ascending; unparseable dates go last.
func compareExpiry(a, b string) int {
	ta, okA := parseExpiry(a)
	tb, okB := parseExpiry(b)
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}

var expiryLayouts = []string{time.RFC3339, "2006-01-02"}

func parseExpiry(s string) (time.Time, bool) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
