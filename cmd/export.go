package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Amrutha-01/swaply-backend/internal/export"
	"github.com/Amrutha-01/swaply-backend/internal/model"
)

var (
	exportOutput string
	exportOwner  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the coupon corpus to an XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var coupons []model.Coupon
		if exportOwner != "" {
			coupons, err = st.ListCouponsByOwner(ctx, exportOwner)
		} else {
			coupons, err = st.ListCoupons(ctx)
		}
		if err != nil {
			return err
		}

		if err := export.WriteCouponsXLSX(exportOutput, coupons); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("path", exportOutput),
			zap.Int("coupons", len(coupons)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "coupons.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportOwner, "owner", "", "limit the export to one user's coupons")
	rootCmd.AddCommand(exportCmd)
}
