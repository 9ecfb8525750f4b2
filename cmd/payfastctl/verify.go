package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"churchpay/internal/pkg/payfast"
)

var errVerificationFailed = errors.New("verification failed")

func verifyCmd() *cobra.Command {
	var (
		passphrase string
		merchantID string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "verify [body]",
		Short: "Check the signature of a captured notification",
		Long: `Verify a captured notification body. With --merchant-id the full
notification checks run (required fields, amounts, merchant); otherwise only
the signature is checked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				fields map[string]string
				err    error
			)
			if asJSON {
				fields, err = payfast.ParseJSONBody([]byte(args[0]))
			} else {
				fields, err = payfast.ParseFormBody([]byte(args[0]))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			redacted, _ := json.MarshalIndent(payfast.RedactPII(fields), "", "  ")
			fmt.Fprintf(out, "%s\n", redacted)

			if merchantID == "" {
				if !payfast.VerifySignature(fields, passphrase) {
					fmt.Fprintln(out, "signature: MISMATCH")
					return errVerificationFailed
				}
				fmt.Fprintln(out, "signature: OK")
				return nil
			}

			// Only the merchant id and passphrase take part in validation.
			v := payfast.NewValidator(payfast.Config{MerchantID: merchantID, Passphrase: passphrase})
			verified, err := v.Validate(fields)
			if err != nil {
				fmt.Fprintf(out, "notification: REJECTED (%v)\n", err)
				return errVerificationFailed
			}
			n := verified.Notification()
			fmt.Fprintf(out, "notification: OK status=%s amount_gross=%s\n", n.PaymentStatus, payfast.FormatAmount(n.AmountGross))
			return nil
		},
	}

	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Merchant passphrase")
	cmd.Flags().StringVar(&merchantID, "merchant-id", "", "Expected merchant id; enables full notification checks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Body is a JSON object instead of a form")
	return cmd
}
