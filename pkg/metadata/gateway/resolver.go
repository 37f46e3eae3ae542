package gateway

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/code-payments/marketplace-adapter/pkg/metadata"
	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/retry"
	"github.com/code-payments/marketplace-adapter/pkg/retry/backoff"
)

const (
	metricsStructName = "metadata.gateway"

	DefaultIPFSGateway    = "https://ipfs.io/ipfs/"
	DefaultArweaveGateway = "https://arweave.net/"
	DefaultTimeout        = 5 * time.Second
	DefaultMaxBodySize    = 1 << 20
)

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected status " + http.StatusText(e.code)
}

func (e *statusError) StatusCode() int {
	return e.code
}

type resolver struct {
	log            *logrus.Entry
	client         *http.Client
	ipfsGateway    string
	arweaveGateway string
	maxBodySize    int64
	attempts       uint
	backoff        backoff.Strategy
}

// Option configures the resolver.
type Option func(*resolver)

// WithIPFSGateway sets the gateway ipfs:// URIs are rewritten to.
func WithIPFSGateway(gateway string) Option {
	return func(r *resolver) {
		r.ipfsGateway = withTrailingSlash(gateway)
	}
}

// WithArweaveGateway sets the gateway ar:// URIs are rewritten to.
func WithArweaveGateway(gateway string) Option {
	return func(r *resolver) {
		r.arweaveGateway = withTrailingSlash(gateway)
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *resolver) {
		r.client = client
	}
}

// WithMaxBodySize limits the size of a metadata document.
func WithMaxBodySize(size int64) Option {
	return func(r *resolver) {
		r.maxBodySize = size
	}
}

// WithRetries sets the number of attempts per fetch and the delay between
// them. Only throttling and gateway failures are retried.
func WithRetries(attempts uint, strategy backoff.Strategy) Option {
	return func(r *resolver) {
		r.attempts = attempts
		r.backoff = strategy
	}
}

// New returns a metadata.Resolver that fetches documents over HTTP.
// Content addressed URIs are rewritten to their gateways.
func New(opts ...Option) metadata.Resolver {
	r := &resolver{
		log:            logrus.StandardLogger().WithField("type", "metadata/gateway"),
		client:         &http.Client{Timeout: DefaultTimeout},
		ipfsGateway:    DefaultIPFSGateway,
		arweaveGateway: DefaultArweaveGateway,
		maxBodySize:    DefaultMaxBodySize,
		attempts:       3,
		backoff:        backoff.BinaryExponential(250 * time.Millisecond),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FetchJSON implements metadata.Resolver.FetchJSON.
func (r *resolver) FetchJSON(ctx context.Context, uri string) (record *metadata.Record, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "FetchJSON")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	log := r.log.WithFields(logrus.Fields{
		"method": "FetchJSON",
		"uri":    uri,
	})

	url, err := r.resolveURL(uri)
	if err != nil {
		return nil, err
	}

	var body []byte
	_, err = retry.Retry(
		ctx,
		func() error {
			var err error
			body, err = r.get(ctx, url)
			return err
		},
		retry.RetriableStatusCodes(http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout),
		retry.Limit(r.attempts),
		retry.Backoff(r.backoff, 2*time.Second),
	)
	if err != nil {
		log.WithError(err).Debug("failed to fetch metadata")
		return nil, errors.Wrapf(metadata.ErrNotAvailable, "%s: %v", uri, err)
	}

	record, err = parse(uri, body)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *resolver) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > r.maxBodySize {
		return nil, errors.Errorf("document exceeds %d bytes", r.maxBodySize)
	}
	return body, nil
}

func (r *resolver) resolveURL(uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		path := strings.TrimPrefix(uri, "ipfs://")
		path = strings.TrimPrefix(path, "ipfs/")
		return r.ipfsGateway + path, nil
	case strings.HasPrefix(uri, "ar://"):
		return r.arweaveGateway + strings.TrimPrefix(uri, "ar://"), nil
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		return uri, nil
	default:
		return "", errors.Wrapf(metadata.ErrNotAvailable, "unsupported uri %q", uri)
	}
}

func parse(uri string, body []byte) (*metadata.Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Wrapf(metadata.ErrNotAvailable, "%s: invalid json", uri)
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, errors.Wrapf(metadata.ErrNotAvailable, "%s: document is not an object", uri)
	}

	record := &metadata.Record{
		URI:         uri,
		Name:        firstString(doc, "name", "title"),
		Description: firstString(doc, "description", "bio"),
		Image:       firstString(doc, "image", "avatar"),
		Raw:         append([]byte(nil), body...),
	}

	for _, path := range []string{"tags", "skills"} {
		tags := doc.Get(path)
		if !tags.IsArray() {
			continue
		}
		for _, tag := range tags.Array() {
			if tag.Type == gjson.String {
				record.Tags = append(record.Tags, tag.String())
			}
		}
		break
	}

	return record, nil
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := doc.Get(path); v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
