package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemSecurity(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "project")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	outsideFile := filepath.Join(tempDir, "outside.kt")
	if err := os.WriteFile(outsideFile, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileSystem(root)
	ctx := context.Background()

	t.Run("Save prevents directory traversal", func(t *testing.T) {
		tests := []struct {
			name string
			path string
			want bool
		}{
			{"normal path", "FooTest.kt", true},
			{"test source tree", "domainA/src/test/kotlin/com/x/FooServiceImplTest.kt", true},
			{"parent traversal", "../FooTest.kt", false},
			{"complex traversal", "domainA/../../FooTest.kt", false},
			{"absolute path", "/etc/passwd", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := fs.Save(ctx, tt.path, []byte("class FooTest"))
				if tt.want && err != nil {
					t.Errorf("expected success, got error: %v", err)
				}
				if !tt.want && err == nil {
					t.Errorf("expected error for path %q, got none", tt.path)
				}
				if !tt.want && !errors.Is(err, ErrOutsideRoot) {
					t.Errorf("expected ErrOutsideRoot for %q, got %v", tt.path, err)
				}
			})
		}
	})

	t.Run("Load prevents directory traversal", func(t *testing.T) {
		tests := []struct {
			name string
			path string
			want bool
		}{
			{"normal path", "FooTest.kt", true},
			{"parent traversal", "../outside.kt", false},
			{"absolute path", outsideFile, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := fs.Load(ctx, tt.path)
				if tt.want && err != nil {
					t.Errorf("expected success, got error: %v", err)
				}
				if !tt.want && err == nil {
					t.Errorf("expected error for path %q, got none", tt.path)
				}
			})
		}
	})

	t.Run("List prevents directory traversal", func(t *testing.T) {
		tests := []struct {
			name    string
			pattern string
			want    bool
		}{
			{"normal pattern", "*.kt", true},
			{"nested pattern", "domainA/src/test/kotlin/com/x/*.kt", true},
			{"parent traversal", "../*", false},
			{"absolute pattern", "/etc/*", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := fs.List(ctx, tt.pattern)
				if tt.want && err != nil {
					t.Errorf("expected success, got error: %v", err)
				}
				if !tt.want && err == nil {
					t.Errorf("expected error for pattern %q, got none", tt.pattern)
				}
			})
		}
	})
}

func TestSanitizePath(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewFileSystem(tempDir)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple file", "FooTest.kt", false},
		{"nested file", "domainA/FooTest.kt", false},
		{"dot file", ".env", false},
		{"parent directory", "../FooTest.kt", true},
		{"sneaky parent", "domainA/../../../etc/passwd", true},
		{"absolute path", "/etc/passwd", true},
		{"empty path", "", false},
		{"dot path", ".", false},
		{"double dot", "..", true},
		{"dots inside a name", "some/..thing/file", false},
		{"backslash separators", `domainA\src\FooTest.kt`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.sanitizePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("sanitizePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
				return
			}
			if err == nil && !strings.HasPrefix(got, fs.Root()) {
				t.Errorf("sanitizePath(%q) = %q, not under root %q", tt.path, got, fs.Root())
			}
		})
	}
}

func TestSaveReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	fs := NewFileSystem(t.TempDir())
	path := "domainA/src/test/kotlin/FooTest.kt"

	if err := fs.Save(ctx, path, []byte("returns Unit")); err != nil {
		t.Fatal(err)
	}
	full, _ := fs.Abs(path)
	if err := os.Chmod(full, 0600); err != nil {
		t.Fatal(err)
	}

	if err := fs.Save(ctx, path, []byte("returns 1L")); err != nil {
		t.Fatal(err)
	}

	data, err := fs.Load(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "returns 1L" {
		t.Errorf("Load() = %q, want %q", data, "returns 1L")
	}

	info, err := os.Stat(full)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(full))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the saved file, found %d entries", len(entries))
	}
}

func TestRelAndSub(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := NewFileSystem(root)

	rel, err := fs.Rel(filepath.Join(root, "domainA", "src", "main", "Foo.kt"))
	if err != nil {
		t.Fatal(err)
	}
	if rel != "domainA/src/main/Foo.kt" {
		t.Errorf("Rel() = %q", rel)
	}

	if _, err := fs.Rel(filepath.Join(filepath.Dir(root), "elsewhere.kt")); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("Rel() outside root error = %v, want ErrOutsideRoot", err)
	}

	data, err := fs.Sub(".testloop")
	if err != nil {
		t.Fatal(err)
	}
	if err := data.Save(ctx, "runs/a.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}

	files, err := fs.List(ctx, ".testloop/runs/*.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != ".testloop/runs/a.json" {
		t.Errorf("List() = %v", files)
	}

	if _, err := fs.Load(ctx, "missing.kt"); !IsNotExist(err) {
		t.Errorf("Load() missing error = %v, want not-exist", err)
	}
}
