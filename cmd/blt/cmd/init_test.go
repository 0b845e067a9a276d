package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssargent/blt/pkg/engineconfig"
)

func TestInitCommand(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "blt_init_test")
	assert.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	t.Run("bootstraps a config when none exists", func(t *testing.T) {
		path := filepath.Join(tmpDir, "blt.yaml")
		dataDir = filepath.Join(tmpDir, "data")
		configPath = path

		err := initCmd.RunE(initCmd, nil)
		assert.NoError(t, err)
		assert.FileExists(t, path)

		cfg, err := engineconfig.LoadConfig(path)
		assert.NoError(t, err)
		assert.Equal(t, dataDir, cfg.DataDir)
		assert.NotEmpty(t, cfg.Server.APIKey)
	})

	t.Run("leaves an existing config untouched", func(t *testing.T) {
		path := filepath.Join(tmpDir, "existing.yaml")
		dataDir = filepath.Join(tmpDir, "existing-data")
		configPath = path

		_, err := engineconfig.BootstrapConfig(path, dataDir)
		assert.NoError(t, err)

		before, err := os.ReadFile(path)
		assert.NoError(t, err)

		err = initCmd.RunE(initCmd, nil)
		assert.NoError(t, err)

		after, err := os.ReadFile(path)
		assert.NoError(t, err)
		assert.Equal(t, before, after)
	})
}
