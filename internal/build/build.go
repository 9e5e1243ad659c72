package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"arbor/internal/content"
	"arbor/internal/index"
	fsutil "arbor/internal/storage/fs"
)

const (
	LockFileName     = ".arbor.lock"
	SnapshotFileName = "content.sqlite"
)

type Options struct {
	ContentPath string
	OutputPath  string
	BasePath    string
	SiteDomain  string
	CodeStyle   string
	LockTimeout time.Duration
	Concurrency int
	Logger      *slog.Logger
}

type Result struct {
	BuildID    uuid.UUID
	Repository *content.Repository
	Items      int
	Backlinks  int
	Dangling   []string
	Snapshot   index.RebuildStats
	Duration   time.Duration
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) renderer() *content.Renderer {
	return content.NewRenderer(content.RendererOptions{
		BasePath:   o.BasePath,
		SiteDomain: o.SiteDomain,
		CodeStyle:  o.CodeStyle,
	})
}

// LoadRepository parses every source file under opts.ContentPath.
func LoadRepository(ctx context.Context, opts Options) (*content.Repository, error) {
	logger := opts.logger()
	renderer := opts.renderer()
	assembler := content.NewAssembler(content.NewResolver(opts.BasePath), renderer).WithLogger(logger)
	items, err := content.Load(ctx, os.DirFS(opts.ContentPath), assembler, opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.ContentPath, err)
	}
	return content.NewRepository(items, assembler.Resolver().BasePath()), nil
}

// Run loads the content tree and writes every export plus the sqlite
// snapshot under opts.OutputPath while holding the output lock.
func Run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	logger := opts.logger()
	buildID := uuid.New()
	logger = logger.With("build_id", buildID.String())

	lock, err := fsutil.AcquireFileLockWithTimeout(ctx, filepath.Join(opts.OutputPath, LockFileName), opts.LockTimeout)
	if err != nil {
		return Result{}, fmt.Errorf("acquire build lock: %w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release build lock", "err", err)
		}
	}()

	repo, err := LoadRepository(ctx, Options{
		ContentPath: opts.ContentPath,
		BasePath:    opts.BasePath,
		SiteDomain:  opts.SiteDomain,
		CodeStyle:   opts.CodeStyle,
		Concurrency: opts.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		return Result{}, err
	}
	for _, t := range content.Types {
		logger.Info("content loaded", "type", t, "count", repo.Count(t), "listed", len(repo.ByType(t)))
	}
	dangling := repo.DanglingLinks()
	for _, target := range dangling {
		logger.Warn("link to missing post", "slug", target, "sources", len(repo.Backlinks(target)))
	}

	if err := Export(ctx, opts.OutputPath, repo, opts.renderer()); err != nil {
		return Result{}, err
	}

	stats, err := writeSnapshot(ctx, filepath.Join(opts.OutputPath, SnapshotFileName), buildID, start, repo)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: %w", err)
	}
	logger.Info("snapshot written",
		"added", stats.Added, "changed", stats.Changed, "unchanged", stats.Unchanged, "removed", stats.Removed)

	res := Result{
		BuildID:    buildID,
		Repository: repo,
		Items:      repo.Len(),
		Backlinks:  len(repo.BacklinkGraph()),
		Dangling:   dangling,
		Snapshot:   stats,
		Duration:   time.Since(start),
	}
	logger.Info("build finished", "items", res.Items, "backlink_targets", res.Backlinks, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func writeSnapshot(ctx context.Context, path string, buildID uuid.UUID, started time.Time, repo *content.Repository) (index.RebuildStats, error) {
	idx, err := index.Open(path)
	if err != nil {
		return index.RebuildStats{}, err
	}
	defer idx.Close()
	if err := idx.Init(ctx); err != nil {
		return index.RebuildStats{}, err
	}
	return idx.Rebuild(ctx, index.BuildInfo{ID: buildID.String(), StartedAt: started}, repo)
}
