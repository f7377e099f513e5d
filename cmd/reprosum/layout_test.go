package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stelzch/binary-tree-summation/topology"
)

func TestLoadLayoutParsesExplicitRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	content := "ranks:\n  - start: 0\n    size: 4\n  - start: 4\n    size: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	regions, err := loadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, []topology.Region{
		{GlobalStartIndex: 0, Size: 4},
		{GlobalStartIndex: 4, Size: 3},
	}, regions)
}

func TestLoadLayoutRejectsEmptyRanksList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranks: []\n"), 0o644))

	_, err := loadLayout(path)
	require.Error(t, err)
}

func TestLoadLayoutRejectsMissingFile(t *testing.T) {
	_, err := loadLayout(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
