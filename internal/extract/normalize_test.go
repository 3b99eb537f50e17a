package extract

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{"coupons":[{"platform":"Zomato","category":"Food","summary":"10% off orders","coupon_code":"FOOD10","value":"10%","expiry_date":"2025-12-31","source_document":"guess.png"}]}`

func TestNormalize_PlainJSON(t *testing.T) {
	coupons, err := Normalize(validResponse, "flyer.png")
	require.NoError(t, err)
	require.Len(t, coupons, 1)

	c := coupons[0]
	assert.Equal(t, "Zomato", c.Platform)
	assert.Equal(t, "Food", c.Category)
	require.NotNil(t, c.CouponCode)
	assert.Equal(t, "FOOD10", *c.CouponCode)
	// Provenance always comes from the caller, never the model.
	assert.Equal(t, "flyer.png", c.SourceDocument)
}

func TestNormalize_FencedJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n" + validResponse + "\n```"},
		{"bare fence", "```\n" + validResponse + "\n```"},
		{"prose wrapped", "Here is the extraction you asked for:\n" + validResponse + "\nLet me know if you need anything else."},
		{"leading whitespace", "\n\n  " + validResponse + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupons, err := Normalize(tt.raw, "flyer.png")
			require.NoError(t, err)
			assert.Len(t, coupons, 1)
		})
	}
}

func TestNormalize_EmptyCouponsArray(t *testing.T) {
	coupons, err := Normalize(`{"coupons": []}`, "flyer.png")
	require.NoError(t, err)
	assert.NotNil(t, coupons)
	assert.Empty(t, coupons)
}

func TestNormalize_NullCouponCode(t *testing.T) {
	raw := `{"coupons":[{"platform":"Amazon","category":"Shopping","summary":"","coupon_code":null,"value":"500 rupees","expiry_date":"2025-10-01","source_document":"x"}]}`

	coupons, err := Normalize(raw, "flyer.png")
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Nil(t, coupons[0].CouponCode)
}

func TestNormalize_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I could not find any coupons in this document."},
		{"empty", ""},
		{"no coupons key", `{"results": []}`},
		{"coupons not array", `{"coupons": "none"}`},
		{"missing required field", `{"coupons":[{"platform":"Zomato","category":"Food","value":"10%"}]}`},
		{"wrong type", `{"coupons":[{"platform":"Zomato","category":"Food","value":10,"expiry_date":"2025-12-31"}]}`},
		{"numeric coupon_code", `{"coupons":[{"platform":"Zomato","category":"Food","coupon_code":42,"value":"10%","expiry_date":"2025-12-31"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupons, err := Normalize(tt.raw, "flyer.png")
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrParse))
			assert.Nil(t, coupons)
		})
	}
}

// One bad element poisons the whole response, even when siblings are valid.
func TestNormalize_RejectsWholeResponseOnOneBadElement(t *testing.T) {
	raw := `{"coupons":[
		{"platform":"Zomato","category":"Food","summary":"","coupon_code":null,"value":"10%","expiry_date":"2025-12-31","source_document":"x"},
		{"platform":"Amazon"}
	]}`

	coupons, err := Normalize(raw, "flyer.png")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrParse))
	assert.Nil(t, coupons)
	assert.Contains(t, err.Error(), "coupons[1]")
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize(validResponse, "flyer.png")
	require.NoError(t, err)
	second, err := Normalize(validResponse, "flyer.png")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalize_EmptySourceDocumentKeepsModelValue(t *testing.T) {
	coupons, err := Normalize(validResponse, "")
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, "guess.png", coupons[0].SourceDocument)
}
