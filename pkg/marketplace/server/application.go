package server

import (
	"context"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
)

func (s *Server) createApplication(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req createApplicationRequest
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

	args := &marketplace.ApplyToProjectInstructionArgs{
		ProposalUri: req.ProposalUri,
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	user, err := s.deriveUser(wallet)
	if err != nil {
		return nil, err
	}

	application, _, err := s.program.GetApplicationAddress(&marketplace.GetApplicationAddressArgs{
		Applicant: user,
		Project:   project,
	})
	if err != nil {
		return nil, err
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewApplyToProjectInstruction(
		&marketplace.ApplyToProjectInstructionAccounts{
			Application: application,
			Project:     project,
			Applicant:   user,
			Authority:   wallet,
		},
		args,
	))
	if err != nil {
		return nil, err
	}

	body["addresses"] = map[string]string{
		"user":        base58.Encode(user),
		"application": base58.Encode(application),
	}
	return body, nil
}

func (s *Server) acceptApplication(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req acceptApplicationRequest
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

	application, err := parsePublicKey("application", req.Application)
	if err != nil {
		return nil, err
	}

	escrow, err := s.deriveEscrow(project)
	if err != nil {
		return nil, err
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewAcceptApplicationInstruction(
		&marketplace.AcceptApplicationInstructionAccounts{
			Project:     project,
			Application: application,
			Escrow:      escrow,
			Authority:   wallet,
		},
	))
	if err != nil {
		return nil, err
	}

	body["addresses"] = map[string]string{
		"escrow": base58.Encode(escrow),
	}
	return body, nil
}

func (s *Server) getApplications(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	wallet, err := parsePublicKey("applicant", queryParam(r, "applicant"))
	if err != nil {
		return nil, err
	}

	user, err := s.deriveUser(wallet)
	if err != nil {
		return nil, err
	}

	f, err := s.program.Schema(marketplace.KindApplication).FieldFilter(marketplace.FieldApplicant, user)
	if err != nil {
		return nil, err
	}

	result, err := s.index.Query(ctx, marketplace.KindApplication, f)
	if err != nil {
		return nil, err
	}
	result.SortBy(newestFirst)

	var views []*applicationView
	for _, item := range result.Decoded() {
		account, err := marketplace.FromRecord(item.Address, item.Record)
		if err != nil {
			return nil, err
		}
		views = append(views, newApplicationView(account.(*marketplace.ApplicationAccount)))
	}

	body := NewGenericApiSuccessResponseBody()
	body["applications"] = emptyIfNil(views)
	body["failures"] = failureViews(result)
	return body, nil
}
