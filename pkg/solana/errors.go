package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// TransactionErrorKey is the string key returned in a transaction error.
//
// Source: https://github.com/solana-labs/solana/blob/fc2bf2d3b669d1c6655ae48b0a05f470938f3676/sdk/src/transaction/mod.rs#L37
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse            TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
	TransactionErrorSanitizeFailure         TransactionErrorKey = "SanitizeFailure"
)

// CustomError is the numerical error returned by a non-system program.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", int(c))
}

// InstructionError indicates an instruction returned an error in a transaction.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("error processing instruction %d: %v", i.Index, i.Err)
}

// CustomError returns the program error code, if the instruction failed with one.
func (i InstructionError) CustomError() *CustomError {
	var custom CustomError
	if errors.As(i.Err, &custom) {
		return &custom
	}
	return nil
}

// TransactionError is a parsed transaction failure reported by the ledger.
type TransactionError struct {
	Key              TransactionErrorKey
	InstructionError *InstructionError
	raw              interface{}
}

func (t TransactionError) Error() string {
	if t.InstructionError != nil {
		return t.InstructionError.Error()
	}
	return string(t.Key)
}

// JSONString returns the error as reported by the ledger.
func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

// ParseTransactionError parses the "err" value of a signature status or
// simulation result. A nil value yields a nil error.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{Key: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		if len(t) != 1 {
			return nil, errors.Errorf("unexpected transaction error format: %v", raw)
		}

		for k, v := range t {
			txErr := &TransactionError{Key: TransactionErrorKey(k), raw: raw}
			if txErr.Key != TransactionErrorInstructionError {
				return txErr, nil
			}

			ixnErr, err := parseInstructionError(v)
			if err != nil {
				return nil, err
			}
			txErr.InstructionError = ixnErr
			return txErr, nil
		}
	}

	return nil, errors.Errorf("unexpected transaction error format: %v", raw)
}

func parseInstructionError(v interface{}) (*InstructionError, error) {
	values, ok := v.([]interface{})
	if !ok || len(values) != 2 {
		return nil, errors.New("unexpected instruction error format")
	}

	index, err := parseJSONNumber(values[0])
	if err != nil {
		return nil, err
	}

	e := &InstructionError{Index: index}
	switch t := values[1].(type) {
	case string:
		e.Err = errors.New(t)
	case map[string]interface{}:
		if code, ok := t["Custom"]; ok {
			c, err := parseJSONNumber(code)
			if err != nil {
				return nil, err
			}
			e.Err = CustomError(c)
		} else {
			e.Err = errors.Errorf("%v", t)
		}
	default:
		return nil, errors.New("unexpected instruction error format")
	}

	return e, nil
}

func parseJSONNumber(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case json.Number:
		i, err := t.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(t)
	}
	return 0, errors.Errorf("unexpected number format: %v", v)
}
