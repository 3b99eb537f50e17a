package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func couponRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "platform", "category", "summary", "coupon_code", "value",
		"expiry_date", "source_document", "owner_uid", "description", "image", "created_at",
	})
}

func TestPostgresStore_GetCoupon_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM coupons WHERE id = \$1`).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	c, err := s.GetCoupon(context.Background(), "missing-id")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCoupon(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	code := "SAVE20"
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM coupons WHERE id = \$1`).
		WithArgs("c1").
		WillReturnRows(couponRows().AddRow(
			"c1", "Amazon", "Electronics", "20% off headphones", &code, "20%",
			"2025-12-31", "flyer.png", "u1", "", "", created,
		))

	c, err := s.GetCoupon(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Amazon", c.Platform)
	require.NotNil(t, c.CouponCode)
	assert.Equal(t, "SAVE20", *c.CouponCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddCoupon(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO coupons`).
		WithArgs(pgxmock.AnyArg(), "Zomato", "Food", "", (*string)(nil), "10%",
			"2025-10-01", "receipt.jpg", "u1", "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.AddCoupon(context.Background(), model.Coupon{
		Platform:       "Zomato",
		Category:       "Food",
		Value:          "10%",
		ExpiryDate:     "2025-10-01",
		SourceDocument: "receipt.jpg",
		OwnerUID:       "u1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCoupon(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Fields are applied in sorted order: category before value.
	mock.ExpectExec(`UPDATE coupons SET category = \$1, value = \$2 WHERE id = \$3`).
		WithArgs("Grocery", "15%", "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateCoupon(context.Background(), "c1", map[string]any{
		"value":    "15%",
		"category": "Grocery",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCoupon_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE coupons SET value = \$1 WHERE id = \$2`).
		WithArgs("15%", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCoupon(context.Background(), "missing", map[string]any{"value": "15%"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCoupon_RejectsUnknownField(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	err := s.UpdateCoupon(context.Background(), "c1", map[string]any{"owner_uid": "u2"})
	require.Error(t, err)
}

func TestPostgresStore_GetUser_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT uid, wallet, prefered_platforms, prefered_categories FROM users`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	u, err := s.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddCouponToWallet(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE users`).
		WithArgs("u1", "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.AddCouponToWallet(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddCouponToWallet_UserMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE users`).
		WithArgs("ghost", "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.AddCouponToWallet(context.Background(), "ghost", "c1")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddTrade_DefaultsStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO trades`).
		WithArgs(pgxmock.AnyArg(), "u1", "u2", []string{"c1"}, []string{"c2"}, "room-1",
			"pending", []string{}, (*time.Time)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	trade, err := s.AddTrade(context.Background(), model.Trade{
		User1:        "u1",
		User2:        "u2",
		User1Coupons: []string{"c1"},
		User2Coupons: []string{"c2"},
		RoomID:       "room-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TradeStatusPending, trade.Status)
	assert.NotEmpty(t, trade.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTradesForUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "user1", "user2", "user1_coupons", "user2_coupons",
		"room_id", "status", "confirmed_by", "confirmed_at", "created_at",
	}).AddRow("t1", "u1", "u2", []string{"c1"}, []string{"c2"}, "room-1", "waiting", []string{"u1"}, (*time.Time)(nil), created)

	mock.ExpectQuery(`SELECT .+ FROM trades`).
		WithArgs("u1").
		WillReturnRows(rows)

	trades, err := s.ListTradesForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, model.TradeStatusWaiting, trades[0].Status)
	assert.True(t, trades[0].Open())
	assert.NoError(t, mock.ExpectationsWereMet())
}
