package core_test

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"

	"github.com/vampirenirmal/testloop/internal/toolchain"
)

type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (m *memStorage) Save(ctx context.Context, p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) Load(ctx context.Context, p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("reading file: %w", fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *memStorage) List(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for name := range m.files {
		if ok, _ := path.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStorage) Exists(ctx context.Context, p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[p]
	return ok
}

func (m *memStorage) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; !ok {
		return fmt.Errorf("deleting file: %w", fs.ErrNotExist)
	}
	delete(m.files, p)
	return nil
}

// scriptedToolchain replays results in order, repeating the last one.
type scriptedToolchain struct {
	compile    []toolchain.Result
	run        []toolchain.Result
	compileErr error

	compileCalls int
	runCalls     int
	modules      []string
	classes      []string
}

func (s *scriptedToolchain) Compile(ctx context.Context, module, testFile string) (toolchain.Result, error) {
	s.modules = append(s.modules, module)
	res := pick(s.compile, s.compileCalls)
	s.compileCalls++
	return res, s.compileErr
}

func (s *scriptedToolchain) Run(ctx context.Context, module, testClass string) (toolchain.Result, error) {
	s.classes = append(s.classes, testClass)
	res := pick(s.run, s.runCalls)
	s.runCalls++
	return res, nil
}

func (s *scriptedToolchain) Coverage(ctx context.Context, module string) (toolchain.Result, error) {
	return toolchain.Result{}, nil
}

func pick(results []toolchain.Result, i int) toolchain.Result {
	if len(results) == 0 {
		return toolchain.Result{}
	}
	return results[min(i, len(results)-1)]
}

func ok(stdout string) toolchain.Result {
	return toolchain.Result{Stdout: stdout}
}

func failed(stderr string) toolchain.Result {
	return toolchain.Result{Stderr: stderr, ExitCode: 1}
}

// readOnlyStorage serves documents but rejects every write.
type readOnlyStorage struct {
	*memStorage
}

func (r readOnlyStorage) Save(ctx context.Context, p string, data []byte) error {
	return fmt.Errorf("saving %s: %w", p, fs.ErrPermission)
}
