package server

import (
	"context"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
)

func (s *Server) createUser(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req userRequest
	if err := s.decode(ctx, r, &req); err != nil {
		return nil, err
	}

	wallet, err := parsePublicKey("wallet", req.Wallet)
	if err != nil {
		return nil, err
	}

	args := &marketplace.CreateUserInstructionArgs{
		Name:        req.Name,
		MetadataUri: req.MetadataUri,
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	user, err := s.deriveUser(wallet)
	if err != nil {
		return nil, err
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewCreateUserInstruction(
		&marketplace.CreateUserInstructionAccounts{
			User:      user,
			Authority: wallet,
		},
		args,
	))
	if err != nil {
		return nil, err
	}

	body["addresses"] = map[string]string{
		"user": base58.Encode(user),
	}
	return body, nil
}

func (s *Server) updateUser(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req userRequest
	if err := s.decode(ctx, r, &req); err != nil {
		return nil, err
	}

	wallet, err := parsePublicKey("wallet", req.Wallet)
	if err != nil {
		return nil, err
	}

	args := &marketplace.UpdateUserInstructionArgs{
		Name:        req.Name,
		MetadataUri: req.MetadataUri,
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	user, err := s.deriveUser(wallet)
	if err != nil {
		return nil, err
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewUpdateUserInstruction(
		&marketplace.UpdateUserInstructionAccounts{
			User:      user,
			Authority: wallet,
		},
		args,
	))
	if err != nil {
		return nil, err
	}

	body["addresses"] = map[string]string{
		"user": base58.Encode(user),
	}
	return body, nil
}

func (s *Server) getUser(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	wallet, err := parsePublicKey("wallet", queryParam(r, "wallet"))
	if err != nil {
		return nil, err
	}

	address, err := s.deriveUser(wallet)
	if err != nil {
		return nil, err
	}

	account, err := s.fetchAccount(ctx, marketplace.KindUser, address)
	if err != nil {
		return nil, err
	}
	user := account.(*marketplace.UserAccount)

	view := newUserView(user)
	view.Metadata = s.resolveMetadata(ctx, []string{user.MetadataUri})[0]

	body := NewGenericApiSuccessResponseBody()
	body["user"] = view
	return body, nil
}
