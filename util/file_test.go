package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveJsonCreatesParentDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "fresh", "run", "config.json")

	in := map[string]int{"episodes": 20, "horizon": 50}
	require.NoError(t, SaveJson(file, in))

	bs, err := os.ReadFile(file)
	require.NoError(t, err)
	out := map[string]int{}
	require.NoError(t, json.Unmarshal(bs, &out))
	require.Equal(t, in, out)
}

func TestSaveJsonRejectsUnmarshalableData(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.json")
	require.Error(t, SaveJson(file, func() {}))
}
