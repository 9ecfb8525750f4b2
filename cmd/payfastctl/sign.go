package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"churchpay/internal/pkg/payfast"
)

func signCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "sign [form-body]",
		Short: "Compute the signature of a form-encoded parameter set",
		Example: `  payfastctl sign 'merchant_id=10000100&amount=99.99&item_name=Tithe' --passphrase secret`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := payfast.ParseFormBody([]byte(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "signable:  %s\n", signableForDisplay(params, passphrase))
			fmt.Fprintf(out, "signature: %s\n", payfast.Sign(params, passphrase))
			return nil
		},
	}

	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Merchant passphrase")
	return cmd
}

// signableForDisplay never echoes the passphrase.
func signableForDisplay(params map[string]string, passphrase string) string {
	s := payfast.SignableString(params, "")
	if passphrase == "" {
		return s
	}
	if s != "" {
		s += "&"
	}
	return s + "passphrase=" + strings.Repeat("*", 8)
}
