package main

import (
	"crypto/ed25519"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

func newDecodeCommand(opts *rootOptions) *cobra.Command {
	var data, encoding, address string

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw program account data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := decodeBytes(data, encoding)
			if err != nil {
				return err
			}

			var addressKey ed25519.PublicKey
			if len(address) > 0 {
				addressKey, err = parseKey("address", address)
				if err != nil {
					return err
				}
			}

			account, err := opts.program.DecodeAccount(addressKey, raw)
			if err != nil {
				return err
			}
			return opts.output(cmd.OutOrStdout(), fmt.Sprint(account), account)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "account data")
	cmd.Flags().StringVar(&encoding, "encoding", string(solana.EncodingBase64), "data encoding (base64|base58)")
	cmd.Flags().StringVar(&address, "address", "", "optional account address")

	return cmd
}

func decodeBytes(value, encoding string) ([]byte, error) {
	if len(value) == 0 {
		return nil, errors.New("no data provided")
	}

	parsed, err := solana.ParseEncoding(encoding)
	if err != nil {
		return nil, err
	}

	return solana.DecodeTransaction(value, parsed)
}
