package server

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

// submitTransaction forwards a fully signed transaction to the store.
func (s *Server) submitTransaction(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req submitTransactionRequest
	if err := s.decode(ctx, r, &req); err != nil {
		return nil, err
	}

	encoding, err := solana.ParseEncoding(req.Encoding)
	if err != nil {
		return nil, err
	}

	raw, err := solana.DecodeTransaction(req.Transaction, encoding)
	if err != nil {
		return nil, newBadRequestError("%v", err)
	}

	var txn solana.Transaction
	if err := txn.Unmarshal(raw); err != nil {
		return nil, newBadRequestError("invalid transaction: %v", err)
	}
	if len(raw) > solana.MaxTransactionSize {
		return nil, newBadRequestError("transaction exceeds %d bytes", solana.MaxTransactionSize)
	}
	if !txn.IsFullySigned() {
		return nil, newBadRequestError("transaction is not fully signed")
	}

	sig, err := s.store.SubmitTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}
	log.WithField("signature", sig.String()).Debug("submitted transaction")
	metrics.RecordEvent(ctx, metrics.TransactionSubmittedEventName, map[string]interface{}{
		"signature":    sig.String(),
		"instructions": len(txn.Message.Instructions),
		"size":         len(raw),
	})

	body := NewGenericApiSuccessResponseBody()
	body["signature"] = sig.String()
	return body, nil
}

// getTransactionStatus blocks until the transaction is confirmed, fails, or
// expires after valid_until.
func (s *Server) getTransactionStatus(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	sig, err := parseSignature(queryParam(r, "signature"))
	if err != nil {
		return nil, err
	}

	validUntil, err := parseUint64("valid_until", queryParam(r, "valid_until"))
	if err != nil {
		return nil, err
	}

	confirmation, err := s.store.ConfirmTransaction(ctx, sig, validUntil)
	if err != nil {
		return nil, err
	}

	body := NewGenericApiSuccessResponseBody()
	body["signature"] = sig.String()
	body["status"] = confirmation.Status.String()
	if confirmation.Slot > 0 {
		body["slot"] = confirmation.Slot
	}
	if confirmation.Err != nil {
		body["transaction_error"] = confirmation.Err.Error()
	}
	return body, nil
}
