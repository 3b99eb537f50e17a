package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. String arrays are
// stored as JSON text since SQLite has no array type.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS coupons (
	id              TEXT PRIMARY KEY,
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
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS users (
	uid                 TEXT PRIMARY KEY,
	wallet              TEXT NOT NULL DEFAULT '[]',
	prefered_platforms  TEXT NOT NULL DEFAULT '[]',
	prefered_categories TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS trades (
	id            TEXT PRIMARY KEY,
	user1         TEXT NOT NULL,
	user2         TEXT NOT NULL,
	user1_coupons TEXT NOT NULL DEFAULT '[]',
	user2_coupons TEXT NOT NULL DEFAULT '[]',
	room_id       TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	confirmed_by  TEXT NOT NULL DEFAULT '[]',
	confirmed_at  DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_coupons_owner_uid ON coupons(owner_uid);
CREATE INDEX IF NOT EXISTS idx_coupons_created_at ON coupons(created_at);
CREATE INDEX IF NOT EXISTS idx_trades_user1 ON trades(user1);
CREATE INDEX IF NOT EXISTS idx_trades_user2 ON trades(user2);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddCoupon(ctx context.Context, c model.Coupon) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coupons (id, platform, category, summary, coupon_code, value, expiry_date, source_document, owner_uid, description, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.Platform, c.Category, c.Summary, c.CouponCode, c.Value, c.ExpiryDate,
		c.SourceDocument, c.OwnerUID, c.Description, c.Image, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert coupon")
	}
	return id, nil
}

func (s *SQLiteStore) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+couponSelectColumns+` FROM coupons WHERE id = ?`,
		id,
	)
	c, err := scanSQLiteCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get coupon %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+couponSelectColumns+` FROM coupons ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list coupons")
	}
	defer rows.Close()
	return collectSQLiteCoupons(rows)
}

func (s *SQLiteStore) ListCouponsByOwner(ctx context.Context, uid string) ([]model.Coupon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+couponSelectColumns+` FROM coupons WHERE owner_uid = ? ORDER BY created_at DESC, id`,
		uid,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list coupons for %s", uid)
	}
	defer rows.Close()
	return collectSQLiteCoupons(rows)
}

func (s *SQLiteStore) UpdateCoupon(ctx context.Context, id string, updates map[string]any) error {
	if err := validateUpdates(updates); err != nil {
		return err
	}

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
		query += fmt.Sprintf("%s = ?", couponColumns[f])
		args = append(args, updates[f])
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update coupon %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: coupon %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, uid string) (*model.User, error) {
	var u model.User
	var wallet, platforms, categories string
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, wallet, prefered_platforms, prefered_categories FROM users WHERE uid = ?`,
		uid,
	).Scan(&u.UID, &wallet, &platforms, &categories)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get user %s", uid)
	}
	if err := decodeStrings(wallet, &u.Wallet); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode wallet for %s", uid)
	}
	if err := decodeStrings(platforms, &u.PreferredPlatforms); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode platforms for %s", uid)
	}
	if err := decodeStrings(categories, &u.PreferredCategories); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode categories for %s", uid)
	}
	return &u, nil
}

func (s *SQLiteStore) PutUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (uid, wallet, prefered_platforms, prefered_categories) VALUES (?, ?, ?, ?)
		 ON CONFLICT (uid) DO UPDATE SET wallet = excluded.wallet,
		   prefered_platforms = excluded.prefered_platforms,
		   prefered_categories = excluded.prefered_categories`,
		u.UID, encodeStrings(u.Wallet), encodeStrings(u.PreferredPlatforms), encodeStrings(u.PreferredCategories),
	)
	return eris.Wrapf(err, "sqlite: put user %s", u.UID)
}

// AddCouponToWallet appends couponID to the user's wallet if absent. The
// read-modify-write runs inside one immediate transaction so concurrent
// uploads to the same wallet serialize instead of losing updates.
func (s *SQLiteStore) AddCouponToWallet(ctx context.Context, uid, couponID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin wallet tx")
	}
	defer tx.Rollback()

	var walletJSON string
	err = tx.QueryRowContext(ctx, `SELECT wallet FROM users WHERE uid = ?`, uid).Scan(&walletJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "sqlite: user %s", uid)
		}
		return eris.Wrapf(err, "sqlite: read wallet for %s", uid)
	}

	var wallet []string
	if err := decodeStrings(walletJSON, &wallet); err != nil {
		return eris.Wrapf(err, "sqlite: decode wallet for %s", uid)
	}
	for _, id := range wallet {
		if id == couponID {
			return tx.Commit()
		}
	}
	wallet = append(wallet, couponID)

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET wallet = ? WHERE uid = ?`,
		encodeStrings(wallet), uid,
	); err != nil {
		return eris.Wrapf(err, "sqlite: write wallet for %s", uid)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit wallet tx")
}

func (s *SQLiteStore) AddTrade(ctx context.Context, t model.Trade) (*model.Trade, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()
	if t.Status == "" {
		t.Status = model.TradeStatusPending
	}
	if t.ConfirmedBy == nil {
		t.ConfirmedBy = []string{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (id, user1, user2, user1_coupons, user2_coupons, room_id, status, confirmed_by, confirmed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.User1, t.User2, encodeStrings(t.User1Coupons), encodeStrings(t.User2Coupons),
		t.RoomID, string(t.Status), encodeStrings(t.ConfirmedBy), t.ConfirmedAt, t.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert trade")
	}
	return &t, nil
}

func (s *SQLiteStore) ListTradesForUser(ctx context.Context, uid string) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user1, user2, user1_coupons, user2_coupons, room_id, status, confirmed_by, confirmed_at, created_at
		 FROM trades
		 WHERE (user1 = ? OR user2 = ?) AND status IN ('pending', 'waiting')
		 ORDER BY created_at DESC, id`,
		uid, uid,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list trades for %s", uid)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var u1Coupons, u2Coupons, confirmedBy, status string
		if err := rows.Scan(&t.ID, &t.User1, &t.User2, &u1Coupons, &u2Coupons,
			&t.RoomID, &status, &confirmedBy, &t.ConfirmedAt, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trade")
		}
		t.Status = model.TradeStatus(status)
		if err := decodeStrings(u1Coupons, &t.User1Coupons); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode user1 coupons")
		}
		if err := decodeStrings(u2Coupons, &t.User2Coupons); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode user2 coupons")
		}
		if err := decodeStrings(confirmedBy, &t.ConfirmedBy); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode confirmed by")
		}
		trades = append(trades, t)
	}
	return trades, eris.Wrap(rows.Err(), "sqlite: list trades iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteCoupon(row scannable) (*model.Coupon, error) {
	var c model.Coupon
	if err := row.Scan(&c.ID, &c.Platform, &c.Category, &c.Summary, &c.CouponCode,
		&c.Value, &c.ExpiryDate, &c.SourceDocument, &c.OwnerUID,
		&c.Description, &c.Image, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func collectSQLiteCoupons(rows *sql.Rows) ([]model.Coupon, error) {
	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanSQLiteCoupon(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan coupon")
		}
		coupons = append(coupons, *c)
	}
	return coupons, eris.Wrap(rows.Err(), "sqlite: coupons iterate")
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func decodeStrings(encoded string, out *[]string) error {
	if encoded == "" {
		*out = []string{}
		return nil
	}
	return json.Unmarshal([]byte(encoded), out)
}
