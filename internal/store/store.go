// Package store persists coupons, users and trades.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

// ErrNotFound indicates the referenced record does not exist. Lookups that
// legitimately return "no record" (GetUser, GetCoupon) return (nil, nil)
// instead; ErrNotFound is for mutations against missing records.
var ErrNotFound = eris.New("not found")

// ErrInvalidField rejects partial updates that name an unknown or
// non-updatable coupon field.
var ErrInvalidField = eris.New("invalid field")

// Store defines the persistence interface for the coupon service.
type Store interface {
	// Coupons
	AddCoupon(ctx context.Context, c model.Coupon) (string, error)
	GetCoupon(ctx context.Context, id string) (*model.Coupon, error)
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	ListCouponsByOwner(ctx context.Context, uid string) ([]model.Coupon, error)
	UpdateCoupon(ctx context.Context, id string, updates map[string]any) error

	// Users
	GetUser(ctx context.Context, uid string) (*model.User, error)
	PutUser(ctx context.Context, u model.User) error
	AddCouponToWallet(ctx context.Context, uid, couponID string) error

	// Trades
	AddTrade(ctx context.Context, t model.Trade) (*model.Trade, error)
	ListTradesForUser(ctx context.Context, uid string) ([]model.Trade, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// couponColumns maps the partial-update field names accepted over the API to
// their storage columns. Anything else in an updates map is rejected.
var couponColumns = map[string]string{
	"platform":        "platform",
	"category":        "category",
	"summary":         "summary",
	"coupon_code":     "coupon_code",
	"value":           "value",
	"expiry_date":     "expiry_date",
	"source_document": "source_document",
	"description":     "description",
	"image":           "image",
}

// validateUpdates checks a partial-update map against the allowed columns.
func validateUpdates(updates map[string]any) error {
	if len(updates) == 0 {
		return eris.Wrap(ErrInvalidField, "store: no fields to update")
	}
	for field := range updates {
		if _, ok := couponColumns[field]; !ok {
			return eris.Wrapf(ErrInvalidField, "store: field not updatable: %s", field)
		}
	}
	return nil
}
