package server

import (
	"context"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
)

func (s *Server) fundEscrow(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req fundEscrowRequest
	if err := s.decode(ctx, r, &req); err != nil {
		return nil, err
	}

	wallet, err := parsePublicKey("wallet", req.Wallet)
	if err != nil {
		return nil, err
	}

	project, err := parsePublicKey("project", req.Project)
	if err != nil {
		return nil, err
	}

	args := &marketplace.FundEscrowInstructionArgs{
		Amount: req.Amount,
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	escrow, err := s.deriveEscrow(project)
	if err != nil {
		return nil, err
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewFundEscrowInstruction(
		&marketplace.FundEscrowInstructionAccounts{
			Escrow:    escrow,
			Project:   project,
			Authority: wallet,
		},
		args,
	))
	if err != nil {
		return nil, err
	}

	body["addresses"] = map[string]string{
		"escrow": base58.Encode(escrow),
	}
	return body, nil
}

// releasePayment reads the escrow to find who gets paid.
func (s *Server) releasePayment(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req projectActionRequest
	if err := s.decode(ctx, r, &req); err != nil {
		return nil, err
	}

	wallet, err := parsePublicKey("wallet", req.Wallet)
	if err != nil {
		return nil, err
	}

	project, err := parsePublicKey("project", req.Project)
	if err != nil {
		return nil, err
	}

	address, err := s.deriveEscrow(project)
	if err != nil {
		return nil, err
	}

	account, err := s.fetchAccount(ctx, marketplace.KindEscrow, address)
	if err != nil {
		return nil, err
	}
	escrow := account.(*marketplace.EscrowAccount)

	if escrow.Released {
		return nil, newBadRequestError("escrow already released")
	}
	if isZeroKey(escrow.Freelancer) {
		return nil, newBadRequestError("no freelancer hired")
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewReleasePaymentInstruction(
		&marketplace.ReleasePaymentInstructionAccounts{
			Escrow:     address,
			Project:    project,
			Freelancer: escrow.Freelancer,
			Authority:  wallet,
		},
	))
	if err != nil {
		return nil, err
	}

	body["amount"] = escrow.Amount
	body["addresses"] = map[string]string{
		"escrow":     base58.Encode(address),
		"freelancer": base58.Encode(escrow.Freelancer),
	}
	return body, nil
}

func isZeroKey(key []byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
