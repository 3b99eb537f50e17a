// Package export writes the coupon corpus to spreadsheet files.
package export

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

var couponHeader = []string{
	"ID", "Platform", "Category", "Summary", "Coupon Code", "Value",
	"Expiry Date", "Source Document", "Owner", "Created At",
}

// WriteCouponsXLSX writes the coupons as one sheet to path.
func WriteCouponsXLSX(path string, coupons []model.Coupon) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Coupons")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range couponHeader {
		header.AddCell().SetString(h)
	}

	for _, c := range coupons {
		row := sheet.AddRow()
		row.AddCell().SetString(c.ID)
		row.AddCell().SetString(c.Platform)
		row.AddCell().SetString(c.Category)
		row.AddCell().SetString(c.Summary)
		if c.CouponCode != nil {
			row.AddCell().SetString(*c.CouponCode)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(c.Value)
		row.AddCell().SetString(c.ExpiryDate)
		row.AddCell().SetString(c.SourceDocument)
		row.AddCell().SetString(c.OwnerUID)
		if c.CreatedAt.IsZero() {
			row.AddCell().SetString("")
		} else {
			row.AddCell().SetString(c.CreatedAt.UTC().Format(time.RFC3339))
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save file")
	}
	return nil
}
