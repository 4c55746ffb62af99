// Package findbugs runs bug detectors over compiled JVM classes.
package findbugs

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"golang.org/x/sync/errgroup"

	"github.com/sarang1991/findbugs/pkg/classfile"
)

// LoaderOptions configures class loading.
type LoaderOptions struct {
	// Paths are directories, .class files and .jar archives, searched in
	// order. Local paths and afs URLs (file://, mem://, s3:// ...) are
	// accepted.
	Paths []string
}

// LoadClasses reads and parses every class reachable from opts.Paths.
// Classes that fail to parse are logged and skipped. When a class name
// occurs more than once the first occurrence in path order is kept.
func LoadClasses(ctx context.Context, opts LoaderOptions) ([]*classfile.Class, error) {
	fs := afs.New()

	var files []string
	for _, p := range opts.Paths {
		found, err := listClassFiles(ctx, fs, toURL(p))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", p, err)
		}
		files = append(files, found...)
	}

	// Each goroutine writes only its own index.
	results := make([][]*classfile.Class, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())
	for idx, file := range files {
		g.Go(func() error {
			data, err := fs.DownloadWithURL(gctx, file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			if isArchive(file) {
				results[idx], err = parseArchive(file, data)
				return err
			}
			if c := parseClass(file, data); c != nil {
				results[idx] = []*classfile.Class{c}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var classes []*classfile.Class
	for _, r := range results {
		classes = append(classes, r...)
	}
	return deduplicateClasses(classes), nil
}

// toURL turns local paths into absolute ones and leaves URLs alone.
func toURL(p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func listClassFiles(ctx context.Context, fs afs.Service, root string) ([]string, error) {
	obj, err := fs.Object(ctx, root)
	if err != nil {
		return nil, err
	}
	if !obj.IsDir() {
		if !isClass(root) && !isArchive(root) {
			return nil, fmt.Errorf("not a class file, jar or directory")
		}
		return []string{root}, nil
	}

	var files []string
	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return true, nil
		}
		if isClass(info.Name()) || isArchive(info.Name()) {
			files = append(files, url.Join(baseURL, path.Join(parent, info.Name())))
		}
		return true, nil
	}
	if err := fs.Walk(ctx, root, visitor); err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func isClass(name string) bool {
	return strings.HasSuffix(name, ".class")
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ".jar") || strings.HasSuffix(name, ".zip")
}

func parseClass(location string, data []byte) *classfile.Class {
	c, err := classfile.Parse(data)
	if err != nil {
		slog.Warn("skipping unparsable class", "location", location, "error", err)
		return nil
	}
	return c
}

func parseArchive(location string, data []byte) ([]*classfile.Class, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", location, err)
	}
	var classes []*classfile.Class
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isClass(f.Name) || strings.HasPrefix(f.Name, "META-INF/versions/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", f.Name, location, err)
		}
		entry, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s in %s: %w", f.Name, location, err)
		}
		if c := parseClass(location+"!/"+f.Name, entry); c != nil {
			classes = append(classes, c)
		}
	}
	return classes, nil
}

// deduplicateClasses keeps the first class of each name.
func deduplicateClasses(classes []*classfile.Class) []*classfile.Class {
	seen := make(map[string]bool, len(classes))
	out := classes[:0]
	for _, c := range classes {
		if seen[c.Name] {
			slog.Debug("shadowed class", "class", c.Name)
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}
