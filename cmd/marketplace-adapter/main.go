package main

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/marketplace-adapter/pkg/app"
	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/marketplace/server"
	metadatacache "github.com/code-payments/marketplace-adapter/pkg/metadata/cache"
	"github.com/code-payments/marketplace-adapter/pkg/metadata/gateway"
	"github.com/code-payments/marketplace-adapter/pkg/netutil"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/index"
)

type adapterApp struct {
	handler http.Handler

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func (a *adapterApp) Init(_ app.Config, _ *newrelic.Application) error {
	ctx := context.Background()
	conf := withEnvConfigs()

	program, err := marketplace.NewProgram(conf.programId.Get(ctx))
	if err != nil {
		return err
	}

	endpoint := solana.ResolveEndpoint(conf.rpcEndpoint.Get(ctx))
	if err := netutil.ValidateHttpUrl(endpoint, false); err != nil {
		return errors.Wrapf(err, "invalid rpc endpoint %s", endpoint)
	}
	store := solana.New(endpoint, solana.WithRateLimit(conf.rpcRate.Get(ctx)))

	idx := index.New(
		store,
		program.ID,
		program.Registry,
		index.WithConcurrency(int(conf.fanoutConcurrency.Get(ctx))),
	)

	ipfsGateway := conf.ipfsGateway.Get(ctx)
	arweaveGateway := conf.arweaveGateway.Get(ctx)
	for _, gatewayUrl := range []string{ipfsGateway, arweaveGateway} {
		if err := netutil.ValidateHttpUrl(gatewayUrl, false); err != nil {
			return errors.Wrapf(err, "invalid metadata gateway %s", gatewayUrl)
		}
	}

	resolver := metadatacache.New(
		gateway.New(
			gateway.WithIPFSGateway(ipfsGateway),
			gateway.WithArweaveGateway(arweaveGateway),
		),
		metadatacache.WithBudget(int(conf.cacheBudget.Get(ctx))),
		metadatacache.WithTTL(conf.cacheTTL.Get(ctx)),
	)

	a.handler = server.NewMarketplaceServer(program, store, idx, resolver, server.WithEnvConfigs()).Routes()

	logrus.StandardLogger().WithFields(logrus.Fields{
		"type":     "marketplace-adapter",
		"program":  base58.Encode(program.ID),
		"endpoint": endpoint,
	}).Info("initialized")
	return nil
}

func (a *adapterApp) Handler() http.Handler {
	return a.handler
}

func (a *adapterApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

func (a *adapterApp) Stop() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func main() {
	a := &adapterApp{
		shutdownCh: make(chan struct{}),
	}

	if err := app.Run(a); err != nil {
		logrus.WithError(err).Error("error running marketplace adapter")
		os.Exit(1)
	}
}
