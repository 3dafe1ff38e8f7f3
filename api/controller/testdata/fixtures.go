// Package testdata provides controller response fixtures for tests.
package testdata

import (
	"embed"
	"testing"
)

// FS embeds all JSON fixture files.
//
//go:embed */*.json
var FS embed.FS

// LoadFixture reads and returns fixture content as string.
// The path is relative to testdata (e.g., "sites/list_success.json").
func LoadFixture(t *testing.T, path string) string {
	t.Helper()

	data, err := FS.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", path, err)
	}

	return string(data)
}
