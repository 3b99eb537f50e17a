package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Amrutha-01/swaply-backend/internal/db"
	"github.com/Amrutha-01/swaply-backend/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS coupons (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	platform        TEXT NOT NULL,
	category        TEXT NOT NULL,
	summary         TEXT NOT NULL DEFAULT '',
	coupon_code     TEXT,
	value           TEXT NOT NULL,
	expiry_date     TEXT NOT NULL,
	source_document TEXT NOT NULL DEFAULT '',
	owner_uid       TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	image           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	uid                 TEXT PRIMARY KEY,
	wallet              TEXT[] NOT NULL DEFAULT '{}',
	prefered_platforms  TEXT[] NOT NULL DEFAULT '{}',
	prefered_categories TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS trades (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user1         TEXT NOT NULL,
	user2         TEXT NOT NULL,
	user1_coupons TEXT[] NOT NULL DEFAULT '{}',
	user2_coupons TEXT[] NOT NULL DEFAULT '{}',
	room_id       TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	confirmed_by  TEXT[] NOT NULL DEFAULT '{}',
	confirmed_at  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_coupons_owner_uid ON coupons(owner_uid);
CREATE INDEX IF NOT EXISTS idx_coupons_created_at ON coupons(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_user1 ON trades(user1);
CREATE INDEX IF NOT EXISTS idx_trades_user2 ON trades(user2);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const couponSelectColumns = `id, platform, category, summary, coupon_code, value, expiry_date, source_document, owner_uid, description, image, created_at`

func (s *PostgresStore) AddCoupon(ctx context.Context, c model.Coupon) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO coupons (id, platform, category, summary, coupon_code, value, expiry_date, source_document, owner_uid, description, image, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, c.Platform, c.Category, c.Summary, c.CouponCode, c.Value, c.ExpiryDate,
		c.SourceDocument, c.OwnerUID, c.Description, c.Image, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert coupon")
	}
	return id, nil
}

func (s *PostgresStore) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+couponSelectColumns+` FROM coupons WHERE id = $1`,
		id,
	)
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get coupon %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+couponSelectColumns+` FROM coupons ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list coupons")
	}
	defer rows.Close()
	return collectCoupons(rows)
}

func (s *PostgresStore) ListCouponsByOwner(ctx context.Context, uid string) ([]model.Coupon, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+couponSelectColumns+` FROM coupons WHERE owner_uid = $1 ORDER BY created_at DESC`,
		uid,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list coupons for %s", uid)
	}
	defer rows.Close()
	return collectCoupons(rows)
}

func (s *PostgresStore) UpdateCoupon(ctx context.Context, id string, updates map[string]any) error {
	if err := validateUpdates(updates); err != nil {
		return err
	}

	// Deterministic column order keeps the statement stable for tests.
	fields := make([]string, 0, len(updates))
	for f := range updates {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	query := `UPDATE coupons SET `
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("%s = $%d", couponColumns[f], i+1)
		args = append(args, updates[f])
	}
	query += fmt.Sprintf(" WHERE id = $%d", len(fields)+1)
	args = append(args, id)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update coupon %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: coupon %s", id)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, uid string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT uid, wallet, prefered_platforms, prefered_categories FROM users WHERE uid = $1`,
		uid,
	).Scan(&u.UID, &u.Wallet, &u.PreferredPlatforms, &u.PreferredCategories)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get user %s", uid)
	}
	return &u, nil
}

func (s *PostgresStore) PutUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (uid, wallet, prefered_platforms, prefered_categories) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (uid) DO UPDATE SET wallet = $2, prefered_platforms = $3, prefered_categories = $4`,
		u.UID, u.Wallet, u.PreferredPlatforms, u.PreferredCategories,
	)
	return eris.Wrapf(err, "postgres: put user %s", u.UID)
}

// AddCouponToWallet appends couponID to the user's wallet in one statement.
// The append-if-absent lives inside the UPDATE so concurrent uploads cannot
// lose each other's writes; zero rows affected means the user is missing.
func (s *PostgresStore) AddCouponToWallet(ctx context.Context, uid, couponID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users
		 SET wallet = CASE WHEN $2 = ANY(wallet) THEN wallet ELSE array_append(wallet, $2) END
		 WHERE uid = $1`,
		uid, couponID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: add to wallet %s", uid)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: user %s", uid)
	}
	return nil
}

func (s *PostgresStore) AddTrade(ctx context.Context, t model.Trade) (*model.Trade, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()
	if t.Status == "" {
		t.Status = model.TradeStatusPending
	}
	if t.ConfirmedBy == nil {
		t.ConfirmedBy = []string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (id, user1, user2, user1_coupons, user2_coupons, room_id, status, confirmed_by, confirmed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.User1, t.User2, t.User1Coupons, t.User2Coupons, t.RoomID,
		string(t.Status), t.ConfirmedBy, t.ConfirmedAt, t.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert trade")
	}
	return &t, nil
}

func (s *PostgresStore) ListTradesForUser(ctx context.Context, uid string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user1, user2, user1_coupons, user2_coupons, room_id, status, confirmed_by, confirmed_at, created_at
		 FROM trades
		 WHERE (user1 = $1 OR user2 = $1) AND status IN ('pending', 'waiting')
		 ORDER BY created_at DESC`,
		uid,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list trades for %s", uid)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var status string
		if err := rows.Scan(&t.ID, &t.User1, &t.User2, &t.User1Coupons, &t.User2Coupons,
			&t.RoomID, &status, &t.ConfirmedBy, &t.ConfirmedAt, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan trade")
		}
		t.Status = model.TradeStatus(status)
		trades = append(trades, t)
	}
	return trades, eris.Wrap(rows.Err(), "postgres: list trades iterate")
}

// scanCoupon reads one coupon row.
func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	if err := row.Scan(&c.ID, &c.Platform, &c.Category, &c.Summary, &c.CouponCode,
		&c.Value, &c.ExpiryDate, &c.SourceDocument, &c.OwnerUID,
		&c.Description, &c.Image, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCoupons(rows pgx.Rows) ([]model.Coupon, error) {
	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan coupon")
		}
		coupons = append(coupons, *c)
	}
	return coupons, eris.Wrap(rows.Err(), "postgres: coupons iterate")
}
