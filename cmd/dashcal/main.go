package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"dashcal/internal/config"
	"dashcal/internal/ics"
	appLog "dashcal/internal/log"
	"dashcal/internal/store"
	"dashcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("dashcal starting", "version", "0.1.0-dev")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"events_file", conf.EventsFile,
		"refresh", conf.RefreshCron,
		"hour_height", conf.HourHeight,
		"max_instances", conf.MaxInstances,
		"horizon_days", conf.HorizonDays,
		"ics_count", len(conf.ICS),
	)

	st, err := store.Open(conf.EventsFile)
	if err != nil {
		appLog.Error("failed to open event store", err, "path", conf.EventsFile)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	server := web.NewServer(conf, st)

	refresh := func() {
		if err := refreshSources(ctx, conf, st); err != nil {
			appLog.Error("refresh failed", err)
		}
		server.InvalidateCache()
	}

	if flags.once {
		refresh()
		return
	}

	// Periodic ICS refresh on the configured cron schedule.
	if len(conf.ICS) > 0 {
		c := cron.New()
		if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
			appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()

		// Prime the store before serving.
		refresh()
	}

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLog.Error("http shutdown failed", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}

	appLog.Info("dashcal exiting")
}

// refreshSources pulls every configured ICS feed and swaps its events
// into the store. Individual source failures are aggregated but do not
// block the others.
func refreshSources(ctx context.Context, conf *config.Config, st *store.Store) error {
	if len(conf.ICS) == 0 {
		return nil
	}

	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}

	fetcher := ics.NewFetcher(conf.CacheDir)
	results, errs := fetcher.FetchAll(ctx, sources)

	for _, res := range results {
		events, err := ics.Parse(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := st.ReplaceSource(res.Source.ID, events); err != nil {
			errs = append(errs, err)
			continue
		}
		appLog.Info("ics source refreshed",
			"id", res.Source.ID, "event_count", len(events), "from_cache", res.FromCache)
	}

	return errorsAggregate(errs)
}

func errorsAggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	var b strings.Builder
	for i, e := range errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return errors.New(b.String())
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./dashcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one ICS refresh and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
