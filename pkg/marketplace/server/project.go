package server

import (
	"context"
	"crypto/ed25519"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
	"github.com/code-payments/marketplace-adapter/pkg/solana/index"
)

func (s *Server) createProject(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	var req createProjectRequest
	if err := s.decode(ctx, r, &req); err != nil {
		return nil, err
	}

	wallet, err := parsePublicKey("wallet", req.Wallet)
	if err != nil {
		return nil, err
	}

	userAddress, err := s.deriveUser(wallet)
	if err != nil {
		return nil, err
	}

	account, err := s.fetchAccount(ctx, marketplace.KindUser, userAddress)
	if err != nil {
		return nil, err
	}
	user := account.(*marketplace.UserAccount)

	args := &marketplace.CreateProjectInstructionArgs{
		Index:       user.ProjectCount,
		Title:       req.Title,
		MetadataUri: req.MetadataUri,
		Budget:      req.Budget,
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	project, _, err := s.program.GetProjectAddress(&marketplace.GetProjectAddressArgs{
		User:  userAddress,
		Index: user.ProjectCount,
	})
	if err != nil {
		return nil, err
	}

	escrow, err := s.deriveEscrow(project)
	if err != nil {
		return nil, err
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewCreateProjectInstruction(
		&marketplace.CreateProjectInstructionAccounts{
			Project:   project,
			Escrow:    escrow,
			User:      userAddress,
			Authority: wallet,
		},
		args,
	))
	if err != nil {
		return nil, err
	}

	body["project_index"] = user.ProjectCount
	body["addresses"] = map[string]string{
		"user":    base58.Encode(userAddress),
		"project": base58.Encode(project),
		"escrow":  base58.Encode(escrow),
	}
	return body, nil
}

func (s *Server) cancelProject(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
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

	escrow, err := s.deriveEscrow(project)
	if err != nil {
		return nil, err
	}

	body, err := s.buildTransaction(ctx, wallet, req.transactionOptions, s.program.NewCancelProjectInstruction(
		&marketplace.CancelProjectInstructionAccounts{
			Project:   project,
			Escrow:    escrow,
			Authority: wallet,
		},
	))
	if err != nil {
		return nil, err
	}

	body["addresses"] = map[string]string{
		"project": base58.Encode(project),
		"escrow":  base58.Encode(escrow),
	}
	return body, nil
}

func (s *Server) getProjects(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	schema := s.program.Schema(marketplace.KindProject)

	var filters []solana.Filter
	if owner := queryParam(r, "owner"); len(owner) > 0 {
		wallet, err := parsePublicKey("owner", owner)
		if err != nil {
			return nil, err
		}

		user, err := s.deriveUser(wallet)
		if err != nil {
			return nil, err
		}

		f, err := schema.FieldFilter(marketplace.FieldOwner, user)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if value := queryParam(r, "status"); len(value) > 0 {
		status, err := marketplace.ParseProjectStatus(value)
		if err != nil {
			return nil, newBadRequestError("%v", err)
		}

		f, err := schema.FieldFilter(marketplace.FieldStatus, uint8(status))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	result, err := s.index.Query(ctx, marketplace.KindProject, filters...)
	if err != nil {
		return nil, err
	}
	result.SortBy(newestFirst)

	var projects []*projectView
	var uris []string
	for _, item := range result.Decoded() {
		account, err := marketplace.FromRecord(item.Address, item.Record)
		if err != nil {
			return nil, err
		}
		project := account.(*marketplace.ProjectAccount)

		projects = append(projects, newProjectView(project))
		uris = append(uris, project.MetadataUri)
	}

	for i, record := range s.resolveMetadata(ctx, uris) {
		projects[i].Metadata = record
	}

	body := NewGenericApiSuccessResponseBody()
	body["projects"] = emptyIfNil(projects)
	body["failures"] = failureViews(result)
	return body, nil
}

// getProject returns a project with its escrow and every application to it,
// along with each applicant's user account.
func (s *Server) getProject(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error) {
	address, err := parsePublicKey("address", queryParam(r, "address"))
	if err != nil {
		return nil, err
	}

	record, err := s.index.Fetch(ctx, marketplace.KindProject, address)
	if err != nil {
		return nil, err
	}
	account, err := marketplace.FromRecord(address, record)
	if err != nil {
		return nil, err
	}
	project := account.(*marketplace.ProjectAccount)

	applicationSchema := s.program.Schema(marketplace.KindApplication)
	joined, err := s.index.Join(
		ctx,
		&index.Result{Kind: marketplace.KindProject, Items: []index.Item{{Address: address, Record: record}}},
		marketplace.KindApplication,
		func(parent index.Item) ([]solana.Filter, error) {
			f, err := applicationSchema.FieldFilter(marketplace.FieldProject, parent.Address)
			if err != nil {
				return nil, err
			}
			return []solana.Filter{f}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	applications := joined[0].Children
	applications.SortBy(oldestFirst)

	var views []*applicationView
	var applicants []ed25519.PublicKey
	for _, item := range applications.Decoded() {
		account, err := marketplace.FromRecord(item.Address, item.Record)
		if err != nil {
			return nil, err
		}
		application := account.(*marketplace.ApplicationAccount)

		views = append(views, newApplicationView(application))
		applicants = append(applicants, application.Applicant)
	}

	users, err := s.index.FetchMany(ctx, marketplace.KindUser, applicants)
	if err != nil {
		return nil, err
	}
	for i, item := range users.Items {
		if !item.OK() {
			log.WithError(item.Err).WithField("user", base58.Encode(item.Address)).Debug("applicant user unavailable")
			continue
		}

		account, err := marketplace.FromRecord(item.Address, item.Record)
		if err != nil {
			return nil, err
		}
		views[i].User = newUserView(account.(*marketplace.UserAccount))
	}

	view := newProjectView(project)
	view.Metadata = s.resolveMetadata(ctx, []string{project.MetadataUri})[0]

	body := NewGenericApiSuccessResponseBody()
	body["project"] = view
	body["applications"] = emptyIfNil(views)
	body["failures"] = failureViews(applications)

	escrowAddress, err := s.deriveEscrow(address)
	if err != nil {
		return nil, err
	}
	escrow, err := s.fetchAccount(ctx, marketplace.KindEscrow, escrowAddress)
	switch {
	case err == nil:
		body["escrow"] = newEscrowView(escrow.(*marketplace.EscrowAccount))
	case solana.IsNotFound(err):
	default:
		log.WithError(err).Warn("failed to fetch escrow")
	}

	return body, nil
}

func newestFirst(a, b *codec.Record) bool {
	return a.Timestamp(marketplace.FieldCreatedAt).After(b.Timestamp(marketplace.FieldCreatedAt))
}

func oldestFirst(a, b *codec.Record) bool {
	return a.Timestamp(marketplace.FieldCreatedAt).Before(b.Timestamp(marketplace.FieldCreatedAt))
}

func failureViews(result *index.Result) []*failureView {
	views := []*failureView{}
	for _, item := range result.Failed() {
		views = append(views, &failureView{
			Address: base58.Encode(item.Address),
			Error:   item.Err.Error(),
		})
	}
	return views
}

func emptyIfNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
