package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"churchpay/internal/config"
	"churchpay/internal/pkg/payfast"
)

func intentCmd() *cobra.Command {
	var (
		amount      string
		item        string
		description string
		churchID    string
	)

	cmd := &cobra.Command{
		Use:   "intent",
		Short: "Build a signed redirect URL using the configured merchant",
		Long: `Build a signed redirect URL for a one-off test payment. Merchant
credentials and callback URLs come from the same config.yaml and PAYFAST_*
environment variables as the API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return err
			}

			d, err := payfast.ParseAmount(amount)
			if err != nil {
				return err
			}

			intent, err := payfast.BuildIntent(payfast.Config{
				MerchantID:  cfg.PayFast.MerchantID,
				MerchantKey: cfg.PayFast.MerchantKey,
				Passphrase:  cfg.PayFast.Passphrase,
				Sandbox:     cfg.PayFast.Sandbox,
			}, payfast.IntentRequest{
				MerchantPaymentID: uuid.NewString(),
				Amount:            d,
				ItemName:          item,
				ItemDescription:   description,
				ReturnURL:         cfg.PayFast.ReturnURL,
				CancelURL:         cfg.PayFast.CancelURL,
				NotifyURL:         cfg.PayFast.NotifyURL,
				CustomStr:         [payfast.CustomSlots]string{churchID},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "m_payment_id: %s\n", intent.Params["m_payment_id"])
			fmt.Fprintf(out, "signature:    %s\n", intent.Signature)
			fmt.Fprintf(out, "url:          %s\n", intent.URL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount in rand, e.g. 100.00")
	cmd.Flags().StringVarP(&item, "item", "i", "Donation", "Item name")
	cmd.Flags().StringVar(&description, "description", "", "Item description")
	cmd.Flags().StringVar(&churchID, "church", "", "Church id carried in custom_str1")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
