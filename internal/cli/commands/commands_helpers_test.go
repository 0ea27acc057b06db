package commands

import (
	"path/filepath"
	"testing"

	"CocoStock/internal/config"
)

// testConfig: конфиг клиента с токеном во временном каталоге.
func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	return &config.Config{
		ServerURL: serverURL,
		TokenFile: filepath.Join(t.TempDir(), "token"),
	}
}
