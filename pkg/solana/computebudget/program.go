package computebudget

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

// ProgramKey is ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

const (
	commandSetComputeUnitLimit uint8 = 2
	commandSetComputeUnitPrice uint8 = 3
)

// SetComputeUnitLimit caps the compute units the transaction may consume.
func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	data := make([]byte, 1+4)
	data[0] = commandSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], computeUnitLimit)

	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per compute unit.
func SetComputeUnitPrice(computeUnitPrice uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = commandSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], computeUnitPrice)

	return solana.NewInstruction(ProgramKey, data)
}

// DecompileSetComputeUnitLimit returns the limit set by the instruction at index.
func DecompileSetComputeUnitLimit(m solana.Message, index int) (uint32, error) {
	args, err := instructionArgs(m, index, commandSetComputeUnitLimit, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(args), nil
}

// DecompileSetComputeUnitPrice returns the price set by the instruction at index.
func DecompileSetComputeUnitPrice(m solana.Message, index int) (uint64, error) {
	args, err := instructionArgs(m, index, commandSetComputeUnitPrice, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(args), nil
}

// instructionArgs returns the data following the command byte of the
// instruction at index, after checking its program, command and size.
func instructionArgs(m solana.Message, index int, command uint8, size int) ([]byte, error) {
	if index < 0 || index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || i.Data[0] != command {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Data) != 1+size {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	return i.Data[1:], nil
}
