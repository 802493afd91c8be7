// Package standards serves the team's testing guideline documents. They are
// read on first use and kept for the life of the process.
package standards

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Document describes one guideline file.
type Document struct {
	Name        string
	File        string
	URI         string
	Description string
}

var (
	TestStandards = Document{
		Name:        "test-standards",
		File:        "TEST_STANDARDS.md",
		URI:         "standards://test-standards",
		Description: "Conventions generated tests follow: naming, mocking, assertions",
	}
	ValidationLoop = Document{
		Name:        "validation-loop",
		File:        "VALIDATION_LOOP.md",
		URI:         "standards://validation-loop",
		Description: "How generated tests are compiled, run and repaired",
	}
)

// Documents lists every guideline document.
func Documents() []Document {
	return []Document{TestStandards, ValidationLoop}
}

// Cache loads the guideline documents lazily from a file system.
type Cache struct {
	fsys   fs.FS
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	texts  map[string]string
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache reading from fsys.
func New(fsys fs.FS, opts ...Option) *Cache {
	c := &Cache{
		fsys:   fsys,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "standards")
	return c
}

// NewDir creates a cache reading from a directory.
func NewDir(dir string, opts ...Option) *Cache {
	return New(os.DirFS(dir), opts...)
}

// Load reads every document the first time it is called. A missing or
// unreadable document is logged and served as empty text. A load cut short
// by ctx is not kept, so the next call reads again.
func (c *Cache) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}

	docs := Documents()
	texts := make([]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}
			data, err := fs.ReadFile(c.fsys, doc.File)
			if err != nil {
				level := slog.LevelWarn
				if !errors.Is(err, fs.ErrNotExist) {
					level = slog.LevelError
				}
				c.logger.Log(ctx, level, "standards document unavailable", "file", doc.File, "error", err)
				return nil
			}
			texts[i] = string(data)
			return nil
		})
	}
	_ = g.Wait()

	c.texts = make(map[string]string, len(docs))
	for i, doc := range docs {
		c.texts[doc.Name] = texts[i]
	}

	if err := ctx.Err(); err != nil {
		c.logger.Debug("standards load interrupted", "error", err)
		return
	}
	c.loaded = true
	c.logger.Debug("standards loaded", "documents", len(docs))
}

// Text returns a document's content, loading the cache if needed.
func (c *Cache) Text(ctx context.Context, doc Document) string {
	c.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texts[doc.Name]
}

// Lookup finds a document by resource URI.
func Lookup(uri string) (Document, bool) {
	for _, doc := range Documents() {
		if doc.URI == uri {
			return doc, true
		}
	}
	return Document{}, false
}
