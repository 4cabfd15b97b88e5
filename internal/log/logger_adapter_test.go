package log_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middleware.otus.dev/mw/internal/log"
)

func TestDefaultLoggerConfigInitializes(t *testing.T) {
	cfg := log.DefaultLoggerConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "mw.log")

	require.NotPanics(t, func() {
		log.Init(cfg)
	})
	assert.NotNil(t, log.GetLogger())
}
