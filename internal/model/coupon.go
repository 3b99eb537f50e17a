package model

import (
	"encoding/json"
	"time"
)

// Coupon is a structured promotional offer record. Platform, category, value
// and expiry date are always present on a persisted coupon; the code is
// nullable because many offers are activated by link rather than code.
type Coupon struct {
	ID             string  `json:"id,omitempty"`
	Platform       string  `json:"platform"`
	Category       string  `json:"category"`
	Summary        string  `json:"summary,omitempty"`
	CouponCode     *string `json:"coupon_code"`
	Value          string  `json:"value"`
	ExpiryDate     string  `json:"expiry_date"`
	SourceDocument string  `json:"source_document,omitempty"`

	// Set on manual upload; absent on extracted-but-unsaved records.
	OwnerUID    string `json:"owner_uid,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// MatchResult is a coupon plus its relevance score for a specific user.
// The score is derived at match time and never persisted.
type MatchResult struct {
	Coupon
	Score int `json:"score"`
}

// ExtractionResult is the pipeline's uniform outcome: a coupon array
// (possibly empty) or an error message, never both.
type ExtractionResult struct {
	Coupons []Coupon
	Err     string
}

// MarshalJSON emits {"error": ...} on failure and {"coupons": [...]} on
// success, with an explicit empty array when no offers were found.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	if r.Err != "" {
		return json.Marshal(map[string]string{"error": r.Err})
	}
	coupons := r.Coupons
	if coupons == nil {
		coupons = []Coupon{}
	}
	return json.Marshal(map[string][]Coupon{"coupons": coupons})
}

// UnmarshalJSON accepts either shape of the wire format.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		Coupons []Coupon `json:"coupons"`
		Err     string   `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Coupons = wire.Coupons
	r.Err = wire.Err
	return nil
}
