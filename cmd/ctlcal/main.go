package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ctlcal/internal/capture"
	"ctlcal/internal/config"
	"ctlcal/internal/feed"
	"ctlcal/internal/listing"
	appLog "ctlcal/internal/log"
	"ctlcal/internal/model"
	"ctlcal/internal/urlstate"
	"ctlcal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	query      string
	preview    string
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()
	// CLI --listen overrides config file and env.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	conf.Normalize()

	if err := appLog.Init(conf.Log.Level, conf.Log.Format); err != nil {
		appLog.Error("failed to initialize logger", err)
		os.Exit(1)
	}
	defer appLog.Sync()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("ctlcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"feed_url", conf.FeedURL,
		"refresh", conf.RefreshCron,
		"cache_dir", conf.CacheDir,
		"fetch_retries", conf.FetchRetries,
		"category_filter", strings.Join(conf.CategoryFilter, ","),
		"once", flags.once,
		"preview", flags.preview,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	fetcher := feed.NewFetcher(conf.CacheDir, conf.FetchRetries)
	refresher := listing.NewRefresher(conf, fetcher)

	if err := refresher.Refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
		if flags.once || flags.preview != "" {
			os.Exit(1)
		}
	}

	switch {
	case flags.once:
		if err := runOnce(refresher, flags.query); err != nil {
			appLog.Error("once: failed", err)
			os.Exit(1)
		}
		return
	case flags.preview != "":
		if err := runPreview(ctx, conf, refresher, flags.query, flags.preview); err != nil {
			appLog.Error("preview: failed", err, "output", flags.preview)
			os.Exit(1)
		}
		return
	}

	if err := refresher.Start(ctx); err != nil {
		appLog.Error("failed to start refresh scheduler", err)
		os.Exit(1)
	}
	if err := web.StartServer(ctx, conf, refresher); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("ctlcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch once, print the filtered view as JSON and exit")
	flag.StringVar(&cfg.query, "query", "", `Query string applied by -once and -preview, e.g. "q=lab&loc=Butler%20Library"`)
	flag.StringVar(&cfg.preview, "preview", "", "Capture the /events page to this PNG path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Log at debug level regardless of config")

	flag.Parse()

	return cfg
}

// onceOutput is what -once prints.
type onceOutput struct {
	Events    []model.Event `json:"events"`
	Alerts    []string      `json:"alerts"`
	Total     int           `json:"total"`
	Query     string        `json:"query"`
	FetchedAt time.Time     `json:"fetched_at"`
	FromCache bool          `json:"from_cache"`
}

func runOnce(ref *listing.Refresher, query string) error {
	snap := ref.Current()
	if snap == nil {
		return errors.New("no events loaded")
	}

	criteria := urlstate.CriteriaFromParams(urlstate.ReadParams(query), ref.Location())
	res := snap.Filter(criteria)

	out := onceOutput{
		Events:    res.Events,
		Alerts:    res.Alerts,
		Total:     len(res.Events),
		Query:     urlstate.Encode(criteria).String(),
		FetchedAt: snap.FetchedAt,
		FromCache: snap.FromCache,
	}
	if out.Alerts == nil {
		out.Alerts = []string{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// runPreview serves the listing on a loopback port and captures it.
func runPreview(ctx context.Context, conf *config.Config, ref *listing.Refresher, query, output string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// The loopback server is not exposed, so it skips basic auth.
	local := *conf
	local.BasicAuth = nil
	srv := &http.Server{Handler: web.NewServer(&local, ref).Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("preview server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	q := urlstate.ParseQuery(query)
	target := "http://" + ln.Addr().String() + "/events" + q.String()
	appLog.Info("capturing preview", "url", target, "output", output)

	if err := capture.CapturePNG(ctx, capture.Options{URL: target, OutputPath: output}); err != nil {
		return err
	}
	appLog.Info("preview written", "output", output)
	return nil
}
