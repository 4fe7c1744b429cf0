package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aryannaik/cellar/internal/auth"
	"github.com/aryannaik/cellar/internal/cellar"
	"github.com/aryannaik/cellar/internal/config"
	"github.com/aryannaik/cellar/internal/generator"
	"github.com/aryannaik/cellar/internal/generator/anthropic"
	"github.com/aryannaik/cellar/internal/generator/ollama"
	"github.com/aryannaik/cellar/internal/generator/openai"
	"github.com/aryannaik/cellar/internal/logging"
	"github.com/aryannaik/cellar/internal/search"
	"github.com/aryannaik/cellar/internal/server"
	"github.com/aryannaik/cellar/internal/sommelier"
	"github.com/aryannaik/cellar/internal/store"
	"github.com/aryannaik/cellar/internal/wine"
)

var cli struct {
	Config   string `help:"Path to a YAML config file" env:"CELLAR_CONFIG"`
	Port     string `help:"Listen port, overrides the config"`
	LogLevel string `help:"Log level, overrides the config"`

	Serve serveCmd `cmd:"" default:"1" help:"Run the HTTP server"`
	List  listCmd  `cmd:"" help:"Print a dataset as a table"`
	Push  pushCmd  `cmd:"" help:"Upload local datasets to the GitHub repository"`
}

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("cellar"),
		kong.Description("Wine cellar inventory backed by local JSON files or a GitHub repository."),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cli.Port != "" {
		cfg.Port = cli.Port
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.PartialGitHub() {
		logger.Warn("GitHub owner, repo and token must all be set; using local files")
	}

	a := &app{cfg: cfg, logger: logger, store: store.New(cfg.Store(), logger)}
	if err := kctx.Run(a); err != nil {
		logger.Error("command failed", zap.String("command", kctx.Command()), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type serveCmd struct {
	SecureCookies bool `help:"Mark the auth cookie Secure (serve behind HTTPS)"`
}

func (c *serveCmd) Run(a *app) error {
	som := newSommelier(a.cfg.AI, a.logger)

	srv := server.New(a.cfg.Port, server.Options{
		Service:       cellar.NewService(a.store, a.logger),
		Backend:       a.store.Backend(),
		Gate:          auth.NewGate(a.cfg.Auth.Salt, a.cfg.Auth.Pins),
		Sommelier:     som,
		Logger:        a.logger,
		StaticDir:     a.cfg.StaticDir,
		SecureCookies: c.SecureCookies,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("backend", string(a.store.Backend())),
			zap.Bool("auth", len(a.cfg.Auth.Pins) > 0),
			zap.Bool("ai", som != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type listCmd struct {
	Dataset string `help:"Dataset to print" default:"1"`
	Status  string `help:"Only print records with this status (in_cellar, consumed, sold, gifted)"`
	Search  string `help:"Only print records matching every term"`
}

func (c *listCmd) Run(a *app) error {
	if c.Status != "" && !wine.Status(c.Status).Valid() {
		return errors.Errorf("unknown status %q", c.Status)
	}

	svc := cellar.NewService(a.store, a.logger)
	l, err := svc.List(context.Background(), c.Dataset, search.Filter{
		Status: wine.Status(c.Status),
		Search: c.Search,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVINTAGE\tCOUNTRY\tQTY\tSTATUS\tLOCATION")
	for _, w := range l.Wines {
		vintage := "NV"
		if w.Vintage != 0 {
			vintage = strconv.Itoa(w.Vintage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", w.ID, w.Name, vintage, w.Country, w.Quantity, w.Status, w.Location)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	source := string(l.Backend)
	if l.Degraded {
		source += " (remote unavailable)"
	}
	fmt.Printf("\n%d records from %s\n", l.Total, source)
	return nil
}

type pushCmd struct {
	Datasets []string `help:"Datasets to upload" default:"1,2"`
}

func (c *pushCmd) Run(a *app) error {
	if a.store.Backend() != store.BackendRemote {
		return store.ErrRemoteDisabled
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, ds := range c.Datasets {
		g.Go(func() error {
			file := store.DatasetFile(ds)
			res, err := a.store.Publish(ctx, ds, "Sync "+file+" from local copy")
			if err != nil {
				return errors.Wrapf(err, "push %s", file)
			}
			a.logger.Info("dataset pushed",
				zap.String("dataset", ds),
				zap.String("file", file),
				zap.String("commit", res.CommitSHA))
			return nil
		})
	}
	return g.Wait()
}

// newSommelier returns nil when no provider is usable, which turns the AI
// routes off.
func newSommelier(ai config.AIConfig, logger *zap.Logger) *sommelier.Sommelier {
	if !ai.Enabled() {
		logger.Info("AI helpers disabled", zap.String("provider", ai.Provider))
		return nil
	}

	text, vision := ai.Models()
	opts := []generator.Option{
		generator.WithApiKey(ai.APIKey),
		generator.WithModel(text),
		generator.WithVisionModel(vision),
		generator.WithBaseURL(ai.BaseURL),
		generator.WithJSONOutput(),
	}

	var gen generator.Generator
	switch ai.Provider {
	case "anthropic":
		gen = anthropic.NewGenerator(opts...)
	case "ollama":
		gen = ollama.NewGenerator(opts...)
	default:
		gen = openai.NewGenerator(opts...)
	}
	return sommelier.New(gen)
}
