package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/computebudget"
	"github.com/code-payments/marketplace-adapter/pkg/solana/memo"
	"github.com/code-payments/marketplace-adapter/pkg/solana/system"
)

type inspectedInstruction struct {
	Index    int      `json:"index"`
	Program  string   `json:"program"`
	Name     string   `json:"name"`
	Details  string   `json:"details,omitempty"`
	Accounts []string `json:"accounts"`
}

type inspectedTransaction struct {
	Signatures   []string                `json:"signatures"`
	FullySigned  bool                    `json:"fully_signed"`
	FeePayer     string                  `json:"fee_payer"`
	Blockhash    string                  `json:"blockhash"`
	Size         int                     `json:"size"`
	Instructions []*inspectedInstruction `json:"instructions"`
}

func newInspectCommand(opts *rootOptions) *cobra.Command {
	var tx, encoding string

	cmd := &cobra.Command{
		Use:   "inspect-tx",
		Short: "Decode a serialized transaction and name its instructions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := decodeBytes(tx, encoding)
			if err != nil {
				return err
			}

			var txn solana.Transaction
			if err := txn.Unmarshal(raw); err != nil {
				return err
			}

			inspected := inspect(opts.program, &txn, len(raw))
			return opts.output(cmd.OutOrStdout(), formatInspected(&txn, inspected), inspected)
		},
	}

	cmd.Flags().StringVar(&tx, "tx", "", "serialized transaction")
	cmd.Flags().StringVar(&encoding, "encoding", string(solana.EncodingBase64), "transaction encoding (base64|base58)")

	return cmd
}

func inspect(program *marketplace.Program, txn *solana.Transaction, size int) *inspectedTransaction {
	res := &inspectedTransaction{
		FullySigned: txn.IsFullySigned(),
		Blockhash:   txn.Message.RecentBlockhash.String(),
		Size:        size,
	}
	for _, sig := range txn.Signatures {
		res.Signatures = append(res.Signatures, sig.String())
	}
	if len(txn.Message.Accounts) > 0 {
		res.FeePayer = base58.Encode(txn.Message.Accounts[0])
	}

	for i, ix := range txn.Message.Instructions {
		inspected := &inspectedInstruction{
			Index: i,
			Name:  "unknown",
		}
		if int(ix.ProgramIndex) < len(txn.Message.Accounts) {
			inspected.Program = base58.Encode(txn.Message.Accounts[ix.ProgramIndex])
		}
		for _, account := range ix.Accounts {
			if int(account) < len(txn.Message.Accounts) {
				inspected.Accounts = append(inspected.Accounts, base58.Encode(txn.Message.Accounts[account]))
			}
		}

		describe(program, txn.Message, i, inspected)
		res.Instructions = append(res.Instructions, inspected)
	}

	return res
}

// describe names the instruction at index for every program this tool knows.
func describe(program *marketplace.Program, m solana.Message, index int, out *inspectedInstruction) {
	ix := m.Instructions[index]
	if int(ix.ProgramIndex) >= len(m.Accounts) {
		return
	}
	programKey := m.Accounts[ix.ProgramIndex]

	switch {
	case bytes.Equal(programKey, program.ID):
		if name, ok := marketplace.InstructionName(ix.Data); ok {
			out.Name = name
		}
	case bytes.Equal(programKey, system.ProgramKey):
		if decompiled, err := system.DecompileCreateAccount(m, index); err == nil {
			out.Name = "create_account"
			out.Details = fmt.Sprintf("lamports=%d size=%d owner=%s", decompiled.Lamports, decompiled.Size, base58.Encode(decompiled.Owner))
		} else if decompiled, err := system.DecompileTransfer(m, index); err == nil {
			out.Name = "transfer"
			out.Details = fmt.Sprintf("lamports=%d", decompiled.Lamports)
		}
	case bytes.Equal(programKey, computebudget.ProgramKey):
		if limit, err := computebudget.DecompileSetComputeUnitLimit(m, index); err == nil {
			out.Name = "set_compute_unit_limit"
			out.Details = fmt.Sprintf("units=%d", limit)
		} else if price, err := computebudget.DecompileSetComputeUnitPrice(m, index); err == nil {
			out.Name = "set_compute_unit_price"
			out.Details = fmt.Sprintf("micro_lamports=%d", price)
		}
	case bytes.Equal(programKey, memo.ProgramKey):
		if decompiled, err := memo.DecompileMemo(m, index); err == nil {
			out.Name = "memo"
			out.Details = fmt.Sprintf("%q", decompiled.Data)
		}
	}
}

func formatInspected(txn *solana.Transaction, inspected *inspectedTransaction) string {
	var sb strings.Builder
	sb.WriteString(txn.String())
	sb.WriteString(fmt.Sprintf("Size: %d\n", inspected.Size))
	sb.WriteString(fmt.Sprintf("FullySigned: %v\n", inspected.FullySigned))
	sb.WriteString("Decoded:\n")
	for _, ix := range inspected.Instructions {
		sb.WriteString(fmt.Sprintf("  %d: %s", ix.Index, ix.Name))
		if len(ix.Details) > 0 {
			sb.WriteString(" " + ix.Details)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
