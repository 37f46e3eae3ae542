package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
	"github.com/code-payments/marketplace-adapter/pkg/solana/index"
	"github.com/code-payments/marketplace-adapter/pkg/solana/memo"
)

const (
	successJsonKey = "success"
	errorJsonKey   = "error"

	requestIdHeaderName = "X-Request-Id"
)

// errBadRequest marks request validation failures.
var errBadRequest = errors.New("bad request")

func newBadRequestError(format string, args ...interface{}) error {
	return errors.Wrapf(errBadRequest, format, args...)
}

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
	}
}

func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	return map[string]any{
		successJsonKey: false,
		errorJsonKey:   err.Error(),
	}
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// HandleErrorInWebContext maps an operation error to a status code and the
// error that is safe to show the caller.
func HandleErrorInWebContext(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}

	var txnErr *solana.TransactionError
	switch {
	case errors.As(err, &txnErr):
		return http.StatusBadRequest, errors.Wrap(txnErr, "transaction rejected")
	case errors.Is(err, errBadRequest),
		errors.Is(err, codec.ErrFilterBounds),
		errors.Is(err, marketplace.ErrInvalidInstructionArgs),
		errors.Is(err, memo.ErrInvalidMemo),
		errors.Is(err, solana.ErrUnsupportedEncoding):
		return http.StatusBadRequest, err
	case solana.IsNotFound(err):
		return http.StatusNotFound, errors.New("account not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, errors.New("request timed out")
	case errors.Is(err, index.ErrAllFailed), solana.IsStoreError(err):
		return http.StatusBadGateway, errors.New("account store unavailable")
	default:
		return http.StatusInternalServerError, errors.New("internal server error")
	}
}

type requestIdContextKey struct{}

// withRequestId tags every request with an id, reusing the caller's when
// provided.
func withRequestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIdHeaderName)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		w.Header().Set(requestIdHeaderName, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIdContextKey{}, id)))
	})
}

func requestIdFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIdContextKey{}).(string)
	return id
}
