package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/render"
	"ledger/internal/storage"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		cli.Fatal(cli.SetupLogger("info"), "Failed to load .env", err)
	}
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Invalid display timezone", err)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	collector := metrics.NewCollector("ledger")
	notifiers := ledger.Notifiers{collector}

	var publisher *amqp.Publisher
	if cfg.AMQPURL != "" {
		publisher = amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	view := render.NewSnapshot()
	ctrl := ledger.New(
		storage.NewTransactionStore(res.Slot, logger),
		view,
		ledger.ContextConfirmer{},
		ledger.WithLogger(logger),
		ledger.WithNotifier(notifiers),
		ledger.WithLocation(loc),
	)
	ctrl.Bootstrap(ctx)
	collector.SetLedgerSize(len(ctrl.Transactions()))

	srv, err := apphttp.NewServer(":"+cfg.Port, ctrl, view,
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(collector),
		apphttp.WithReadiness(res.Ready),
	)
	if err != nil {
		cli.Fatal(logger, "Failed to build HTTP server", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if publisher != nil {
		g.Go(func() error {
			// A missing broker degrades to no change feed; it never stops the server.
			if err := publisher.Connect(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("AMQP change feed unavailable", log.FieldError, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"amqp_enabled", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
