package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsEmptyLedger(t *testing.T) {
	l := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))

	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Contains("0501234567"))
	assert.False(t, l.Dirty())
}

func TestLoadMalformedFileYieldsEmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phones.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	l := Load(path)
	assert.Equal(t, 0, l.Len())
}

func TestLoadCollapsesDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phones.json")
	require.NoError(t, os.WriteFile(path, []byte(`["0501234567","0501234567","0559876543"]`), 0644))

	l := Load(path)
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains("0501234567"))
	assert.True(t, l.Contains("0559876543"))
}

func TestAddAndFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phones.json")

	l := Load(path)
	l.Add("0559876543")
	l.Add("0501234567")
	require.True(t, l.Dirty())

	l.Flush()
	assert.False(t, l.Dirty())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []string
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Equal(t, []string{"0501234567", "0559876543"}, entries, "entries must be sorted")
}

func TestFlushWithoutChangesIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phones.json")

	l := Load(path)
	l.Flush()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "clean ledger must not touch the file")
}

func TestRoundTripPreservesMembership(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phones.json")

	first := Load(path)
	first.Add("0501234567")
	first.Add("0559876543")
	first.Flush()

	second := Load(path)
	second.MarkDirty()
	second.Flush()

	third := Load(path)
	assert.Equal(t, first.Phones(), third.Phones())
}

func TestAddEmptyPhoneIgnored(t *testing.T) {
	l := Load(filepath.Join(t.TempDir(), "phones.json"))
	l.Add("")
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Dirty())
}
