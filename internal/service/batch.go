package service

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/vampirenirmal/testloop/internal/storage"
)

// ValidateAll validates several test files with at most limit loops running
// at once. Requests naming the same file are run once and share an envelope,
// so a file never has two loops rewriting it. Envelopes are returned in
// request order.
func (s *Service) ValidateAll(ctx context.Context, reqs []ValidateRequest, limit int) []*Envelope {
	if limit < 1 {
		limit = 1
	}

	type job struct {
		req     ValidateRequest
		indexes []int
	}
	var jobs []*job
	byKey := make(map[string]*job)
	for i, req := range reqs {
		key := fileKey(req)
		if j, ok := byKey[key]; ok {
			j.indexes = append(j.indexes, i)
			continue
		}
		j := &job{req: req, indexes: []int{i}}
		byKey[key] = j
		jobs = append(jobs, j)
	}

	s.logger.Info("validating test files", "files", len(jobs), "requests", len(reqs), "limit", limit)

	results := make([]*Envelope, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, j := range jobs {
		g.Go(func() error {
			env := s.ValidateTest(gctx, j.req)
			for _, i := range j.indexes {
				results[i] = env
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fileKey identifies the file a request validates, so that relative and
// absolute spellings of one path collapse.
func fileKey(req ValidateRequest) string {
	root := storage.NewFileSystem(req.ProjectRoot)
	if rel, err := root.Rel(req.TestPath); err == nil {
		return filepath.Join(root.Root(), filepath.FromSlash(rel))
	}
	return filepath.Join(filepath.Clean(req.ProjectRoot), filepath.Clean(req.TestPath))
}
