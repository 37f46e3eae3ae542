package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/computebudget"
	"github.com/code-payments/marketplace-adapter/pkg/solana/memo"
)

// TransactionOptions adds optional instructions around the program's own.
// Zero values add nothing.
type TransactionOptions struct {
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	Memo             string
}

// BuildTransaction serializes an unsigned transaction paid for by feePayer.
// Compute budget instructions come first and the memo last, so that the
// program's instructions keep their relative order.
func BuildTransaction(
	feePayer ed25519.PublicKey,
	freshness solana.Blockhash,
	opts *TransactionOptions,
	instructions ...solana.Instruction,
) ([]byte, error) {
	if opts == nil {
		opts = &TransactionOptions{}
	}

	builder := solana.NewTransactionBuilder(feePayer, freshness)
	if opts.ComputeUnitLimit > 0 {
		builder.AddInstruction(computebudget.SetComputeUnitLimit(opts.ComputeUnitLimit))
	}
	if opts.ComputeUnitPrice > 0 {
		builder.AddInstruction(computebudget.SetComputeUnitPrice(opts.ComputeUnitPrice))
	}
	builder.AddInstruction(instructions...)
	if len(opts.Memo) > 0 {
		if err := memo.Validate(opts.Memo); err != nil {
			return nil, err
		}
		builder.AddInstruction(memo.Instruction(opts.Memo))
	}

	raw, err := builder.Serialize(false)
	metrics.RecordTransactionBuilt(leadingInstruction(instructions), len(raw), err)
	return raw, err
}

func leadingInstruction(instructions []solana.Instruction) string {
	if len(instructions) == 0 {
		return "none"
	}
	if name, ok := InstructionName(instructions[0].Data); ok {
		return name
	}
	return "other"
}
