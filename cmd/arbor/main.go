package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arbor/internal/build"
	"arbor/internal/config"
	"arbor/internal/content"
	"arbor/internal/index"
	"arbor/internal/web"
)

func main() {
	if err := config.LoadEnvFile(config.EnvFileName); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	closeLog := setupLogging(cfg)
	defer closeLog()
	index.SetBuildVersion(web.BuildVersion)

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "build":
		err = runBuild(ctx, cfg)
	case "serve":
		err = runServe(ctx, cfg)
	case "backlinks":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		err = runBacklinks(ctx, cfg, os.Stdout, args[1])
	case "dangling":
		err = runDangling(ctx, cfg, os.Stdout)
	case "assets":
		err = runAssets(ctx, cfg, os.Stdout)
	case "version":
		fmt.Fprintln(os.Stdout, version())
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error(args[0]+" failed", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: arbor [build|serve|backlinks <slug>|dangling|assets|version]")
}

func version() string {
	if v := strings.TrimSpace(web.BuildVersion); v != "" {
		return v
	}
	return "dev"
}

func buildOptions(cfg config.Config) build.Options {
	return build.Options{
		ContentPath: cfg.ContentPath,
		OutputPath:  cfg.OutputPath,
		BasePath:    cfg.BasePath,
		SiteDomain:  cfg.SiteDomain,
		CodeStyle:   cfg.CodeStyle,
		LockTimeout: cfg.BuildLockTimeout,
		Concurrency: cfg.Concurrency,
	}
}

func runBuild(ctx context.Context, cfg config.Config) error {
	slog.Info("build start", "content", cfg.ContentPath, "output", cfg.OutputPath, "base_path", cfg.BasePath, "version", version())
	res, err := build.Run(ctx, buildOptions(cfg))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "build %s: %d items, %d backlink targets, %d dangling, %s\n",
		res.BuildID, res.Items, res.Backlinks, len(res.Dangling), res.Duration.Round(time.Millisecond))
	return nil
}

func runServe(ctx context.Context, cfg config.Config) error {
	opts := buildOptions(cfg)
	loader := func(ctx context.Context) (*content.Repository, error) {
		return build.LoadRepository(ctx, opts)
	}
	repo, err := loader(ctx)
	if err != nil {
		return err
	}
	srv := web.NewServer(repo, loader)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				_ = srv.Reload(ctx)
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr, "items", repo.Len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func runBacklinks(ctx context.Context, cfg config.Config, w io.Writer, slug string) error {
	repo, err := build.LoadRepository(ctx, buildOptions(cfg))
	if err != nil {
		return err
	}
	links := repo.Backlinks(slug)
	if len(links) == 0 {
		fmt.Fprintf(w, "no backlinks to %s\n", slug)
		return nil
	}
	for _, bl := range links {
		fmt.Fprintf(w, "%s\t%s\t%s\n", bl.Updated, bl.Slug, bl.Title)
	}
	return nil
}

func runDangling(ctx context.Context, cfg config.Config, w io.Writer) error {
	repo, err := build.LoadRepository(ctx, buildOptions(cfg))
	if err != nil {
		return err
	}
	for _, target := range repo.DanglingLinks() {
		sources := make([]string, 0)
		for _, bl := range repo.Backlinks(target) {
			sources = append(sources, bl.Slug)
		}
		fmt.Fprintf(w, "%s\t%s\n", target, strings.Join(sources, ","))
	}
	return nil
}

var errMissingAssets = errors.New("missing assets")

func runAssets(ctx context.Context, cfg config.Config, w io.Writer) error {
	repo, err := build.LoadRepository(ctx, buildOptions(cfg))
	if err != nil {
		return err
	}
	missing, err := build.CheckAssets(repo, cfg.PublicPath)
	if err != nil {
		return err
	}
	for _, m := range missing {
		fmt.Fprintf(w, "%s/%s\t%s\n", m.Type, m.Slug, m.Src)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %d", errMissingAssets, len(missing))
	}
	return nil
}
