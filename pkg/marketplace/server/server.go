package server

import (
	"context"
	"crypto/ed25519"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/metadata"
	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/pointer"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/index"
)

const (
	v1PathPrefix            = "/v1"
	v1CreateUserPath        = v1PathPrefix + "/user/create"
	v1UpdateUserPath        = v1PathPrefix + "/user/update"
	v1GetUserPath           = v1PathPrefix + "/user"
	v1CreateProjectPath     = v1PathPrefix + "/project/create"
	v1GetProjectsPath       = v1PathPrefix + "/projects"
	v1GetProjectPath        = v1PathPrefix + "/project"
	v1CancelProjectPath     = v1PathPrefix + "/project/cancel"
	v1CreateApplicationPath = v1PathPrefix + "/application/create"
	v1GetApplicationsPath   = v1PathPrefix + "/applications"
	v1AcceptApplicationPath = v1PathPrefix + "/application/accept"
	v1FundEscrowPath        = v1PathPrefix + "/escrow/fund"
	v1ReleasePaymentPath    = v1PathPrefix + "/escrow/release"
	v1SubmitTransactionPath = v1PathPrefix + "/transaction/submit"
	v1TransactionStatusPath = v1PathPrefix + "/transaction/status"
	v1HealthPath            = "/health"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
)

type Server struct {
	log      *logrus.Entry
	conf     *conf
	program  *marketplace.Program
	store    solana.AccountStore
	index    *index.Index
	resolver metadata.Resolver
}

func NewMarketplaceServer(
	program *marketplace.Program,
	store solana.AccountStore,
	idx *index.Index,
	resolver metadata.Resolver,
	configProvider ConfigProvider,
) *Server {
	return &Server{
		log:      logrus.StandardLogger().WithField("type", "marketplace/server"),
		conf:     configProvider(),
		program:  program,
		store:    store,
		index:    idx,
		resolver: resolver,
	}
}

// Routes returns the HTTP surface of the adapter.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withRequestId)

	r.Post(v1CreateUserPath, s.handle(v1CreateUserPath, s.createUser))
	r.Post(v1UpdateUserPath, s.handle(v1UpdateUserPath, s.updateUser))
	r.Get(v1GetUserPath, s.handle(v1GetUserPath, s.getUser))
	r.Post(v1CreateProjectPath, s.handle(v1CreateProjectPath, s.createProject))
	r.Get(v1GetProjectsPath, s.handle(v1GetProjectsPath, s.getProjects))
	r.Get(v1GetProjectPath, s.handle(v1GetProjectPath, s.getProject))
	r.Post(v1CancelProjectPath, s.handle(v1CancelProjectPath, s.cancelProject))
	r.Post(v1CreateApplicationPath, s.handle(v1CreateApplicationPath, s.createApplication))
	r.Get(v1GetApplicationsPath, s.handle(v1GetApplicationsPath, s.getApplications))
	r.Post(v1AcceptApplicationPath, s.handle(v1AcceptApplicationPath, s.acceptApplication))
	r.Post(v1FundEscrowPath, s.handle(v1FundEscrowPath, s.fundEscrow))
	r.Post(v1ReleasePaymentPath, s.handle(v1ReleasePaymentPath, s.releasePayment))
	r.Post(v1SubmitTransactionPath, s.handle(v1SubmitTransactionPath, s.submitTransaction))
	r.Get(v1TransactionStatusPath, s.handle(v1TransactionStatusPath, s.getTransactionStatus))

	r.Get(v1HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.write(w, s.log, http.StatusNotFound, NewGenericApiFailureResponseBody(errors.New("route not found")))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.write(w, s.log, http.StatusMethodNotAllowed, NewGenericApiFailureResponseBody(errors.Errorf("http %s not allowed", r.Method)))
	})

	return r
}

type handlerFunc func(ctx context.Context, log *logrus.Entry, r *http.Request) (GenericApiResponseBody, error)

func (s *Server) handle(path string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithContext(r.Context()).WithFields(logrus.Fields{
			"path":       path,
			"method":     r.Method,
			"request_id": requestIdFromContext(r.Context()),
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			body, err := fn(r.Context(), log, r)
			if err != nil {
				statusCode, displayed := HandleErrorInWebContext(err)
				if statusCode >= http.StatusInternalServerError {
					log.WithError(err).Warn("failure handling request")
				} else {
					log.WithError(err).Debug("rejected request")
				}
				return statusCode, NewGenericApiFailureResponseBody(displayed)
			}
			return http.StatusOK, body
		}()

		s.write(w, log, statusCode, body)
	}
}

func (s *Server) write(w http.ResponseWriter, log *logrus.Entry, statusCode int, body GenericApiResponseBody) {
	w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body.ToString())); err != nil {
		log.WithError(err).Info("failed to write body")
	}
}

func (s *Server) decode(ctx context.Context, r *http.Request, dst interface{}) error {
	return decodeJsonBody(r, s.conf.maxRequestBodySize.Get(ctx), dst)
}

// buildTransaction serializes instructions into an unsigned transaction paid
// for by wallet, encoded as requested.
func (s *Server) buildTransaction(
	ctx context.Context,
	wallet ed25519.PublicKey,
	opts transactionOptions,
	instructions ...solana.Instruction,
) (GenericApiResponseBody, error) {
	encoding, err := solana.ParseEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	price := pointer.ValueOr(opts.ComputeUnitPrice, s.conf.defaultComputeUnitPrice.Get(ctx))

	limit := s.conf.computeUnitLimit.Get(ctx)
	if limit > math.MaxUint32 {
		limit = math.MaxUint32
	}

	token, err := s.store.GetFreshnessToken(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := marketplace.BuildTransaction(
		wallet,
		token.Blockhash,
		&marketplace.TransactionOptions{
			ComputeUnitLimit: uint32(limit),
			ComputeUnitPrice: price,
			Memo:             opts.Memo,
		},
		instructions...,
	)
	if err != nil {
		return nil, err
	}

	encoded, err := solana.EncodeTransaction(raw, encoding)
	if err != nil {
		return nil, err
	}

	metrics.RecordEvent(ctx, metrics.TransactionBuiltEventName, map[string]interface{}{
		"fee_payer":    base58.Encode(wallet),
		"instructions": len(instructions),
		"size":         len(raw),
		"encoding":     string(encoding),
	})

	body := NewGenericApiSuccessResponseBody()
	body["transaction"] = encoded
	body["encoding"] = encoding
	body["fee_payer"] = base58.Encode(wallet)
	body["freshness"] = map[string]any{
		"blockhash":               token.Blockhash.String(),
		"last_valid_block_height": token.LastValidBlockHeight,
	}
	return body, nil
}

func (s *Server) resolveMetadata(ctx context.Context, uris []string) []*metadata.Record {
	ctx, cancel := context.WithTimeout(ctx, s.conf.metadataTimeout.Get(ctx))
	defer cancel()

	return metadata.ResolveAll(ctx, s.resolver, uris, int(s.conf.metadataConcurrency.Get(ctx)))
}

func (s *Server) deriveUser(wallet ed25519.PublicKey) (ed25519.PublicKey, error) {
	user, _, err := s.program.GetUserAddress(&marketplace.GetUserAddressArgs{Wallet: wallet})
	return user, err
}

func (s *Server) deriveEscrow(project ed25519.PublicKey) (ed25519.PublicKey, error) {
	escrow, _, err := s.program.GetEscrowAddress(&marketplace.GetEscrowAddressArgs{Project: project})
	return escrow, err
}

// fetchAccount reads and resolves a single account of kind.
func (s *Server) fetchAccount(ctx context.Context, kind string, address ed25519.PublicKey) (marketplace.Account, error) {
	record, err := s.index.Fetch(ctx, kind, address)
	if err != nil {
		return nil, err
	}
	return marketplace.FromRecord(address, record)
}
