package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

func TestWriteCouponsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coupons.xlsx")
	code := "SAVE20"

	coupons := []model.Coupon{
		{
			ID:             "c1",
			Platform:       "Amazon",
			Category:       "Electronics",
			Summary:        "20% off headphones",
			CouponCode:     &code,
			Value:          "20%",
			ExpiryDate:     "2025-12-31",
			SourceDocument: "flyer.png",
			OwnerUID:       "u1",
			CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:         "c2",
			Platform:   "Zomato",
			Category:   "Food",
			Value:      "10%",
			ExpiryDate: "2025-10-01",
		},
	}

	require.NoError(t, WriteCouponsXLSX(path, coupons))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Coupons", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Amazon", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "SAVE20", sheet.Rows[1].Cells[4].String())
	assert.Equal(t, "2025-06-01T12:00:00Z", sheet.Rows[1].Cells[9].String())
	assert.Equal(t, "", sheet.Rows[2].Cells[4].String())
}

func TestWriteCouponsXLSX_EmptyCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, WriteCouponsXLSX(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 1)
}
