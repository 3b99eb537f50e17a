package model

import "time"

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusWaiting   TradeStatus = "waiting"
	TradeStatusConfirmed TradeStatus = "confirmed"
)

// Trade is a proposed coupon exchange between two users.
type Trade struct {
	ID           string      `json:"id,omitempty"`
	User1        string      `json:"user1"`
	User2        string      `json:"user2"`
	User1Coupons []string    `json:"user1_coupons"`
	User2Coupons []string    `json:"user2_coupons"`
	RoomID       string      `json:"room_id,omitempty"`
	Status       TradeStatus `json:"status"`
	ConfirmedBy  []string    `json:"confirmedBy"`
	ConfirmedAt  *time.Time  `json:"confirmedAt"`
	CreatedAt    time.Time   `json:"createdAt,omitzero"`
}

// Open reports whether the trade still needs action from either party.
func (t Trade) Open() bool {
	return t.Status == TradeStatusPending || t.Status == TradeStatusWaiting
}
