package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/content/rss"
	"github.com/Kadantte/Kurumi-sub000/internal/dispatch"
	"github.com/Kadantte/Kurumi-sub000/internal/feed"
	"github.com/Kadantte/Kurumi-sub000/internal/ingest"
	"github.com/Kadantte/Kurumi-sub000/internal/interactive"
	"github.com/Kadantte/Kurumi-sub000/internal/logutil"
	"github.com/Kadantte/Kurumi-sub000/internal/report"
	"github.com/Kadantte/Kurumi-sub000/platform/console"
	"github.com/Kadantte/Kurumi-sub000/store/sqlite"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot on the console adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	reporter := report.LogReporter{Logger: logger}

	dbCfg := sqlite.Config{
		DSN:           viper.GetString("db.dsn"),
		BusyTimeoutMs: viper.GetInt("db.busy_timeout_ms"),
		WAL:           viper.GetBool("db.wal"),
		ForeignKeys:   viper.GetBool("db.foreign_keys"),
		AutoMigrate:   viper.GetBool("db.auto_migrate"),
	}
	db, err := sqlite.Open(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := sourcesFromViper()
	if err != nil {
		return err
	}

	client := console.New(console.Config{
		UserID: viper.GetString("console.user"),
		Logger: logger,
	})

	stateless, err := interactive.NewStatelessTable(client, sources)
	if err != nil {
		return err
	}
	manager := interactive.NewManager(interactive.ManagerConfig{
		Client:         client,
		Stateless:      stateless,
		TTL:            viper.GetDuration("interactive.ttl"),
		AttachInterval: viper.GetDuration("interactive.attach_interval"),
		Logger:         logger,
		Reporter:       reporter,
	})

	refresh := viper.GetDuration("interactive.refresh_interval")
	pipeline := dispatch.NewPipeline(dispatch.PipelineConfig{
		Client: client,
		Messages: []dispatch.MessageHandler{
			dispatch.NewCommands(dispatch.CommandsConfig{
				Prefix:          viper.GetString("command.prefix"),
				Client:          client,
				Sources:         sources,
				Channels:        db,
				Items:           db,
				Manager:         manager,
				RefreshInterval: refresh,
				Logger:          logger,
			}),
			dispatch.NewLinkDetector(dispatch.LinkDetectorConfig{
				Client:          client,
				Sources:         sources,
				Manager:         manager,
				RefreshInterval: refresh,
				Logger:          logger,
			}),
			manager,
		},
		Reactions: []dispatch.ReactionHandler{manager},
		Logger:    logger,
		Reporter:  reporter,
	})
	client.Handle(pipeline.DispatchMessage, pipeline.DispatchReaction)

	scheduler := feed.NewScheduler(feed.SchedulerConfig{
		Channels: db,
		Items:    db,
		Dispatcher: feed.NewItemDispatcher(feed.ItemDispatcherConfig{
			Client:          client,
			Manager:         manager,
			Sources:         sources,
			RefreshInterval: refresh,
			Logger:          logger,
		}),
		Interval:     viper.GetDuration("feed.interval"),
		SendInterval: viper.GetDuration("feed.send_interval"),
		CycleCap:     viper.GetInt("feed.cycle_cap"),
		PageSize:     viper.GetInt("feed.page_size"),
		Logger:       logger,
		Reporter:     reporter,
	})

	ingester := ingest.NewLoop(ingest.LoopConfig{
		Sources:        sources,
		Items:          db,
		Interval:       viper.GetDuration("ingest.interval"),
		PerSourceLimit: viper.GetInt("ingest.per_source_limit"),
		Logger:         logger,
		Reporter:       reporter,
	})

	logger.Info("serve_started", "sources", sources.Names(), "prefix", viper.GetString("command.prefix"))

	var wg sync.WaitGroup
	background := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("serve_loop_error", "loop", name, "error", err.Error())
			}
		}()
	}
	background("interactive_attach", manager.Run)
	background("feed_scheduler", scheduler.Run)
	background("ingest", ingester.Run)

	// The console read loop owns the foreground; EOF or a signal ends the
	// process. The read is a blocking stdin scan, so a signal wins the
	// select instead of interrupting it.
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()
	select {
	case err = <-runErr:
	case <-ctx.Done():
		err = nil
	}
	stop()
	pipeline.Wait()
	wg.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	logger.Info("serve_stopped")
	return nil
}

func sourcesFromViper() (*content.Registry, error) {
	feeds := viper.GetStringMapString("sources.rss")
	srcs := make([]content.Source, 0, len(feeds))
	for name, url := range feeds {
		src, err := rss.New(name, url)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		srcs = append(srcs, src)
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no content sources configured; set sources.rss in the config file")
	}
	return content.NewRegistry(srcs...)
}
