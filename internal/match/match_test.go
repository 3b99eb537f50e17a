package match

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

func coupon(id, owner, platform, category, expiry string) model.Coupon {
	return model.Coupon{
		ID:         id,
		OwnerUID:   owner,
		Platform:   platform,
		Category:   category,
		Value:      "10%",
		ExpiryDate: expiry,
	}
}

func TestMatch_Scoring(t *testing.T) {
	prefs := model.Preferences{
		Platforms:  []string{"Zomato"},
		Categories: []string{"Food"},
	}

	tests := []struct {
		name  string
		c     model.Coupon
		score int
	}{
		{"platform only", coupon("c1", "u2", "Zomato", "Travel", "2025-12-31"), 80},
		{"category only", coupon("c2", "u2", "Amazon", "Food", "2025-12-31"), 15},
		{"both", coupon("c3", "u2", "Zomato", "Food", "2025-12-31"), 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Match([]model.Coupon{tt.c}, "u1", prefs)
			require.Len(t, results, 1)
			assert.Equal(t, tt.score, results[0].Score)
		})
	}
}

func TestMatch_DropsIrrelevantCoupons(t *testing.T) {
	prefs := model.Preferences{Platforms: []string{"Zomato"}}

	results := Match([]model.Coupon{
		coupon("c1", "u2", "Amazon", "Electronics", "2025-12-31"),
	}, "u1", prefs)

	assert.Empty(t, results)
}

func TestMatch_ExcludesOwnCoupons(t *testing.T) {
	prefs := model.Preferences{Platforms: []string{"Zomato"}}

	results := Match([]model.Coupon{
		coupon("mine", "u1", "Zomato", "Food", "2025-12-31"),
		coupon("theirs", "u2", "Zomato", "Food", "2025-12-31"),
	}, "u1", prefs)

	require.Len(t, results, 1)
	assert.Equal(t, "theirs", results[0].ID)
}

func TestMatch_EmptyPreferences(t *testing.T) {
	results := Match([]model.Coupon{
		coupon("c1", "u2", "Zomato", "Food", "2025-12-31"),
	}, "u1", model.Preferences{})

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMatch_MatchingIsCaseSensitive(t *testing.T) {
	prefs := model.Preferences{Platforms: []string{"zomato"}}

	results := Match([]model.Coupon{
		coupon("c1", "u2", "Zomato", "Food", "2025-12-31"),
	}, "u1", prefs)

	assert.Empty(t, results)
}

func TestMatch_OrdersByExpiryAscending(t *testing.T) {
	prefs := model.Preferences{Platforms: []string{"Zomato"}}

	results := Match([]model.Coupon{
		coupon("later", "u2", "Zomato", "Food", "2026-01-15"),
		coupon("sooner", "u2", "Zomato", "Food", "2025-11-01"),
		coupon("unparseable", "u2", "Zomato", "Food", "whenever"),
	}, "u1", prefs)

	require.Len(t, results, 3)
	assert.Equal(t, "sooner", results[0].ID)
	assert.Equal(t, "later", results[1].ID)
	assert.Equal(t, "unparseable", results[2].ID)
}

func TestMatch_StableOnEqualExpiry(t *testing.T) {
	prefs := model.Preferences{Platforms: []string{"Zomato"}}

	results := Match([]model.Coupon{
		coupon("first", "u2", "Zomato", "Food", "2025-12-31"),
		coupon("second", "u3", "Zomato", "Food", "2025-12-31"),
	}, "u1", prefs)

	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
}

func TestMatch_DoesNotMutateInput(t *testing.T) {
	prefs := model.Preferences{Platforms: []string{"Zomato"}}
	corpus := []model.Coupon{
		coupon("b", "u2", "Zomato", "Food", "2026-01-01"),
		coupon("a", "u2", "Zomato", "Food", "2025-01-01"),
	}

	Match(corpus, "u1", prefs)

	assert.Equal(t, "b", corpus[0].ID)
	assert.Equal(t, "a", corpus[1].ID)
}

// fakeStore covers the two Store calls ForUser makes.
type fakeStore struct {
	users   map[string]model.User
	coupons []model.Coupon
}

func (f *fakeStore) GetUser(_ context.Context, uid string) (*model.User, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeStore) ListCoupons(context.Context) ([]model.Coupon, error) {
	return f.coupons, nil
}

func (f *fakeStore) AddCoupon(context.Context, model.Coupon) (string, error) { return "", nil }
func (f *fakeStore) GetCoupon(context.Context, string) (*model.Coupon, error) {
	return nil, nil
}
func (f *fakeStore) ListCouponsByOwner(context.Context, string) ([]model.Coupon, error) {
	return nil, nil
}
func (f *fakeStore) UpdateCoupon(context.Context, string, map[string]any) error { return nil }
func (f *fakeStore) PutUser(context.Context, model.User) error                  { return nil }
func (f *fakeStore) AddCouponToWallet(context.Context, string, string) error    { return nil }
func (f *fakeStore) AddTrade(context.Context, model.Trade) (*model.Trade, error) {
	return nil, nil
}
func (f *fakeStore) ListTradesForUser(context.Context, string) ([]model.Trade, error) {
	return nil, nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func TestForUser(t *testing.T) {
	fs := &fakeStore{
		users: map[string]model.User{
			"u1": {UID: "u1", PreferredPlatforms: []string{"Zomato"}},
		},
		coupons: []model.Coupon{
			coupon("c1", "u2", "Zomato", "Food", "2025-12-31"),
			coupon("c2", "u2", "Amazon", "Travel", "2025-12-31"),
		},
	}

	results, err := ForUser(context.Background(), fs, "u1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, 80, results[0].Score)
}

func TestForUser_UnknownUser(t *testing.T) {
	fs := &fakeStore{users: map[string]model.User{}}

	_, err := ForUser(context.Background(), fs, "ghost")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUserNotFound))
}
