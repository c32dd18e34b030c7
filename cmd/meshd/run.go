package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meshsec/provider-core/config"
	"github.com/meshsec/provider-core/metrics"
	"github.com/meshsec/provider-core/nativeproxy"
	"github.com/meshsec/provider-core/staking"
	"github.com/meshsec/provider-core/transport"
	"github.com/meshsec/provider-core/validatorset"
	"github.com/meshsec/provider-core/vault"
)

// unbondSweepInterval is how often the native proxy's matured unbonding
// queue is swept and released back to the vault. External-staking's own
// WithdrawUnbonded is per-user and query-triggered instead, since it has
// no bulk "every owner" API the way nativeproxy.ReleaseUnbonded does.
const unbondSweepInterval = 30 * time.Second

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meshd",
		Short: "Runs the mesh provider-core process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	config.AddFlags(cmd.PersistentFlags())
	return cmd
}

func run(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.DevLogging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	registry := prometheus.NewRegistry()
	m, err := metrics.New(cfg.MetricsNamespace, registry)
	if err != nil {
		return err
	}

	_, proxy, dispatcher, hub, err := wire(*cfg, m, log)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handler, err := transport.NewServer(dispatcher, hub)
	if err != nil {
		return err
	}
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		sweepUnbonded(groupCtx, proxy, log)
		return nil
	})

	return group.Wait()
}

// wire assembles the vault and its two staking destinations the way
// cycle-breaking forces them together: nativeproxy.New needs no vault
// yet (it is attached after), vault.New needs the proxy
// as its LocalStakingSink up front, transport.NewDispatcher needs no
// staking yet (also attached after), and staking.New needs both the
// vault and the dispatcher up front.
func wire(cfg config.Config, m metrics.Metrics, log *zap.Logger) (*vault.Vault, *nativeproxy.Proxy, *transport.Dispatcher, *transport.Hub, error) {
	proxy := nativeproxy.New(nativeproxy.Config{
		Denom:           cfg.Native.Denom,
		Validator:       cfg.Native.Validator,
		SelfAddress:     cfg.Native.SelfAddress,
		UnbondingPeriod: cfg.Native.UnbondingPeriod,
		MaxSlashPPM:     cfg.Native.MaxSlashPPM,
	}, nil, log, m)

	v := vault.New(vault.Config{
		CollateralDenom: cfg.Vault.CollateralDenom,
	}, proxy, log, m)
	proxy.AttachVault(v)

	validators := validatorset.New()
	if len(cfg.Staking.RemoteValidators) > 0 {
		entries := make([]validatorset.Validator, len(cfg.Staking.RemoteValidators))
		now := time.Now()
		for i, val := range cfg.Staking.RemoteValidators {
			entries[i] = validatorset.Validator{
				Valoper:   val,
				StartTime: now,
			}
		}
		validators.AddValidators(entries)
	}

	dispatcher := transport.NewDispatcher(v, nil, log)
	s := staking.New(staking.Config{
		StakingDenom:       cfg.Staking.StakingDenom,
		RewardsDenom:       cfg.Staking.RewardsDenom,
		SelfAddress:        cfg.Staking.SelfAddress,
		AuthorizedEndpoint: cfg.Staking.AuthorizedEndpoint,
		UnbondingPeriod:    cfg.Staking.UnbondingPeriod,
		MaxSlashPPM:        cfg.Staking.MaxSlashPPM,
	}, validators, v, dispatcher, log, m)
	dispatcher.AttachStaking(s)
	v.RegisterDestination(s)

	hub := transport.NewHub(dispatcher, log)
	dispatcher.AttachHub(hub)

	return v, proxy, dispatcher, hub, nil
}

func sweepUnbonded(ctx context.Context, proxy *nativeproxy.Proxy, log *zap.Logger) {
	ticker := time.NewTicker(unbondSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := proxy.ReleaseUnbonded(now); err != nil {
				log.Error("failed to sweep matured unbonds", zap.Error(err))
			}
		}
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
