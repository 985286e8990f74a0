package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/logger"
)

func TestChatCmd_Use(t *testing.T) {
	assert.Equal(t, "chat", chatCmd.Use)
	assert.Contains(t, chatCmd.Long, "Tab")
}

func TestChatCmd_NotConfigured(t *testing.T) {
	servicesReady = true
	defer func() { servicesReady = false }()

	_, err := execute(t, "chat")

	assert.EqualError(t, err, "answer service not configured")
}

func TestChatCmd_RequiresUser(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	userID = ""

	_, err := execute(t, "chat", "--user", "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "user id required")
}

func TestMCPServeCmd_Flags(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "p", flag.Shorthand)
		assert.Equal(t, "0", flag.DefValue)
	}
}

func TestMCPServeCmd_NotConfigured(t *testing.T) {
	servicesReady = true
	defer func() { servicesReady = false }()

	_, err := execute(t, "mcp", "serve")

	assert.EqualError(t, err, "answer service not configured")
}

func TestQuietLogs_VerboseGoesToFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	logger.SetVerbose(true)
	defer logger.SetVerbose(false)

	restore := quietLogs()
	logger.Info("chat started for %s", "u1")
	restore()

	data, err := os.ReadFile(filepath.Join(dir, chatLogName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "chat started for u1")
}

func TestQuietLogs_QuietModeWritesNothing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	logger.SetVerbose(false)

	restore := quietLogs()
	logger.Error("hidden")
	restore()

	_, err := os.Stat(filepath.Join(dir, chatLogName))
	assert.True(t, os.IsNotExist(err))
}
