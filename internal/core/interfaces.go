package core

import (
	"context"

	"github.com/vampirenirmal/testloop/internal/toolchain"
)

type Storage interface {
	Save(ctx context.Context, path string, data []byte) error
	Load(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, pattern string) ([]string, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
}

// Toolchain compiles and runs tests for a build module. A returned error
// means the tool could not run; a rejected build is a non-zero exit code.
type Toolchain interface {
	Compile(ctx context.Context, module, testFile string) (toolchain.Result, error)
	Run(ctx context.Context, module, testClass string) (toolchain.Result, error)
	Coverage(ctx context.Context, module string) (toolchain.Result, error)
}
