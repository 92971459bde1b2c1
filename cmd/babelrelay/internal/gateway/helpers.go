package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal"
	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/channels"
	"github.com/tinyland-inc/babelrelay/pkg/config"
	"github.com/tinyland-inc/babelrelay/pkg/dedup"
	"github.com/tinyland-inc/babelrelay/pkg/health"
	"github.com/tinyland-inc/babelrelay/pkg/logger"
	"github.com/tinyland-inc/babelrelay/pkg/metering"
	"github.com/tinyland-inc/babelrelay/pkg/providers"
	"github.com/tinyland-inc/babelrelay/pkg/relay"
	"github.com/tinyland-inc/babelrelay/pkg/routing"
	"github.com/tinyland-inc/babelrelay/pkg/slackapi"
	"github.com/tinyland-inc/babelrelay/pkg/store"
	"github.com/tinyland-inc/babelrelay/pkg/users"
)

const shutdownTimeout = 10 * time.Second

func gatewayCmd(debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	if err := cfg.ValidateSlack(); err != nil {
		return fmt.Errorf("invalid slack config: %w", err)
	}
	routes, err := routing.NewTable(cfg.Routes)
	if err != nil {
		return fmt.Errorf("invalid routes: %w", err)
	}
	if routes.Len() == 0 {
		return errors.New("no routes configured: add a channel pair under \"routes\"")
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "babelrelay@" + internal.GetVersion(),
		}); err != nil {
			fmt.Printf("⚠ Warning: Sentry init failed: %v\n", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			fmt.Println("✓ Error reporting enabled")
		}
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Location())
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	defer st.Close()

	translator, err := providers.NewGateway(cfg)
	if err != nil {
		return fmt.Errorf("error creating provider: %w", err)
	}

	clientOpts := []slackapi.Option{
		slackapi.WithRate(cfg.Slack.RatePerSecond),
		slackapi.WithRateLimitRetries(cfg.Slack.RateLimitRetries),
	}
	if cfg.Slack.APIURL != "" {
		clientOpts = append(clientOpts, slackapi.WithAPIURL(cfg.Slack.APIURL))
	}
	slackClient := slackapi.NewClient(cfg.Slack.BotToken, clientOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botID, err := slackClient.AuthTest(ctx)
	if err != nil {
		return fmt.Errorf("slack auth failed: %w", err)
	}
	logger.InfoCF("gateway", "Authenticated with Slack", map[string]any{"bot_user": botID})

	guard, err := newDedupGuard(ctx, cfg.Dedup)
	if err != nil {
		return fmt.Errorf("error creating dedup guard: %w", err)
	}
	defer guard.Close()

	meter := metering.NewMeterStore()
	msgBus := bus.NewMessageBus(cfg.Relay.QueueSize)
	pipeline := relay.New(
		routes,
		msgBus,
		translator,
		slackClient,
		users.NewResolver(slackClient),
		st,
		relay.WithWorkers(cfg.Relay.Workers),
		relay.WithEventTimeout(cfg.Relay.EventTimeout.Duration),
		relay.WithBidirectionalThreads(cfg.Relay.BidirectionalThreads),
		relay.WithModerationNotice(cfg.Relay.ModerationNotice),
		relay.WithDedup(guard),
		relay.WithMeter(meter),
	)

	healthServer := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port)
	healthServer.Handle("/stats", meter.Handler())
	if rg, ok := guard.(*dedup.RedisGuard); ok {
		healthServer.RegisterCheck("dedup", rg.Ping)
	}

	receiver := newReceiver(cfg, pipeline, healthServer)

	fmt.Println("\n📦 Relay Status:")
	fmt.Printf("  • Routes: %d channel pairs\n", len(cfg.Routes))
	fmt.Printf("  • Channels: %s\n", strings.Join(routes.Channels(), ", "))
	fmt.Printf("  • Provider: %s\n", cfg.Translation.Provider)
	fmt.Printf("  • Store: %s\n", cfg.Store.Driver)
	fmt.Printf("  • Workers: %d\n", cfg.Relay.Workers)

	// Workers get their own context so queued events can drain after the
	// signal context is cancelled.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		pipeline.Run(workCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := receiver.Start(gctx); err != nil {
			return fmt.Errorf("starting %s: %w", receiver.Name(), err)
		}
		healthServer.SetReady(true)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")
		healthServer.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := receiver.Stop(shutdownCtx); err != nil {
			logger.WarnCF("gateway", "Receiver stop", map[string]any{"error": err.Error()})
		}
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.WarnCF("gateway", "Server stop", map[string]any{"error": err.Error()})
		}
		return nil
	})

	fmt.Printf("✓ Receiver: %s\n", receiver.Name())
	fmt.Printf("✓ Gateway started on %s\n", healthServer.Addr())
	fmt.Printf("✓ Health endpoints available at http://%s/health, /ready and /stats\n", healthServer.Addr())
	fmt.Println("Press Ctrl+C to stop")

	err = g.Wait()

	pipeline.Stop()
	select {
	case <-runDone:
	case <-time.After(cfg.Relay.EventTimeout.Duration):
		logger.WarnC("gateway", "Workers did not drain in time, cancelling in-flight events")
		cancelWork()
		<-runDone
	}

	if err != nil {
		return err
	}
	fmt.Println("✓ Gateway stopped")
	return nil
}

// newReceiver builds the Slack receiver for the configured mode. Events mode
// mounts its handler on the gateway server.
func newReceiver(cfg *config.Config, h channels.Handler, srv *health.Server) channels.Channel {
	if cfg.Slack.Mode == config.SlackModeSocket {
		return channels.NewSocketChannel(cfg.Slack.BotToken, cfg.Slack.AppToken, cfg.Slack.APIURL, h)
	}
	events := channels.NewEventsChannel(cfg.Slack.SigningSecret, h)
	srv.Handle(cfg.Slack.EventsPath, events)
	return events
}

func newDedupGuard(ctx context.Context, cfg config.DedupConfig) (dedup.Guard, error) {
	ttl := cfg.TTL.Duration
	if ttl <= 0 {
		ttl = dedup.DefaultTTL
	}
	if cfg.Driver != config.DedupRedis {
		return dedup.NewMemoryGuard(ttl), nil
	}

	rg, err := dedup.NewRedisGuard(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix, ttl)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rg.Ping(pingCtx); err != nil {
		rg.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	return rg, nil
}
