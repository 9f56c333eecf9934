package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/capstruct/internal/pipeline"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "manifest.yaml", `
- name: aap-fy2024
  balance_sheet: in/aap/balance_sheet.json
  metadata: in/aap/metadata.json
  debt_note: in/aap/debt.html
  lease_note: in/aap/lease.html
  market_cap_mm: 2592
- name: orly-fy2024
  balance_sheet: in/orly/balance_sheet.json
  metadata: in/orly/metadata.json
  debt_note: in/orly/debt.html
  lease_note: in/orly/lease.html
  market_cap_mm: 70100.5
`)

	entries, err := loadManifest(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "aap-fy2024", entries[0].Name)
	assert.Equal(t, "in/aap/debt.html", entries[0].DebtNote)
	require.NotNil(t, entries[0].MarketCapMM)
	assert.Equal(t, 2592.0, *entries[0].MarketCapMM)
	assert.Equal(t, 70100.5, *entries[1].MarketCapMM)
}

func TestLoadManifest_MissingName(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "manifest.yaml", `
- balance_sheet: a.json
  market_cap_mm: 10
`)

	_, err := loadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadManifest_MissingMarketCap(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "manifest.yaml", `
- name: aap-fy2024
  balance_sheet: a.json
`)

	_, err := loadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market_cap_mm is required")
}

func TestLoadManifest_BadFile(t *testing.T) {
	_, err := loadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestProcessBatch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	mc := 2592.0
	entries := []batchEntry{
		{
			Name:         "aap-fy2024",
			BalanceSheet: writeFixture(t, in, "balance_sheet.json", testBalanceSheet),
			Metadata:     writeFixture(t, in, "metadata.json", testMetadata),
			DebtNote:     writeFixture(t, in, "debt.html", testDebtNote),
			LeaseNote:    writeFixture(t, in, "lease.html", testLeaseNote),
			MarketCapMM:  &mc,
		},
		{
			// broken entry, inputs don't exist; must not abort the batch
			Name:         "broken",
			BalanceSheet: filepath.Join(in, "missing.json"),
			Metadata:     filepath.Join(in, "missing.json"),
			DebtNote:     filepath.Join(in, "missing.html"),
			LeaseNote:    filepath.Join(in, "missing.html"),
			MarketCapMM:  &mc,
		},
	}

	err := processBatch(context.Background(), entries, 2, out, pipeline.Options{})
	require.NoError(t, err)

	for _, name := range []string{"built.json", "assessment.json", "capital_structure.html"} {
		info, err := os.Stat(filepath.Join(out, "aap-fy2024", name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	_, err = os.Stat(filepath.Join(out, "broken"))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessBatch_Empty(t *testing.T) {
	require.NoError(t, processBatch(context.Background(), nil, 2, t.TempDir(), pipeline.Options{}))
}
