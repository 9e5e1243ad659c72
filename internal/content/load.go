package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

type sourceFile struct {
	typ  Type
	path string
}

// Load reads every {folder}/*.md file of fsys and assembles it. Files are
// parsed concurrently; the returned slice is in (type, file name) order
// regardless of completion order. A missing type directory contributes no
// items.
func Load(ctx context.Context, fsys fs.FS, a *Assembler, concurrency int) ([]ContentItem, error) {
	files, err := discover(fsys)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	items := make([]ContentItem, len(files))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			raw, err := fs.ReadFile(fsys, file.path)
			if err != nil {
				return fmt.Errorf("read %s: %w", file.path, err)
			}
			items[i] = a.Assemble(file.path, string(raw), file.typ)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func discover(fsys fs.FS) ([]sourceFile, error) {
	var files []sourceFile
	for _, t := range Types {
		entries, err := fs.ReadDir(fsys, t.Folder())
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", t.Folder(), err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(path.Ext(entry.Name()), ".md") {
				continue
			}
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, sourceFile{typ: t, path: path.Join(t.Folder(), name)})
		}
	}
	return files, nil
}
