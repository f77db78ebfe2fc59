package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"aipipeline/internal/app"
	"aipipeline/internal/config"
	"aipipeline/internal/logger"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	a, err := app.New(cfg, deps.DB, deps.NSQProducer)
	if err != nil {
		return err
	}
	defer a.Close()

	// Worker (Notification Delivery)
	if cfg.EnableNotifyWorker {
		consumer, err := nsq.NewConsumer(config.TopicPipelineCompleted, config.ChannelNotifyDelivery, nsq.NewConfig())
		if err != nil {
			return err
		}
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return a.DeliveryConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
		} else {
			slog.Info("notification delivery worker connected")
		}
		defer consumer.Stop()
	}

	if !cfg.EnableAPI {
		<-ctx.Done()
		return nil
	}

	return a.Run(ctx)
}
