package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedAndDeactivate(t *testing.T) {
	t.Chdir(t.TempDir())
	db := filepath.Join(t.TempDir(), "metal.db")

	out, err := run(t, "seed", "--db-path", db)
	require.NoError(t, err)
	assert.Contains(t, out, "GOLD_INR (Gold Price in INR) active=true")

	out, err = run(t, "seed", "--db-path", db, "--source-name", "ignored")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "source 1 "), out)

	out, err = run(t, "deactivate", "GOLD_INR", "--db-path", db)
	require.NoError(t, err)
	assert.Contains(t, out, "deactivated")

	_, err = run(t, "deactivate", "SILVER_INR", "--db-path", db)
	assert.Error(t, err)
}

func TestBackfill_Validation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("METAL_API_KEY", "key")
	db := filepath.Join(t.TempDir(), "metal.db")

	_, err := run(t, "backfill", "--db-path", db, "--start", "2025-02-01", "--end", "2025-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start date must not be after end date")

	_, err = run(t, "backfill", "--db-path", db, "--start", "2025-01-01")
	assert.Error(t, err, "--end is required")
}

func TestAlertAdd(t *testing.T) {
	t.Chdir(t.TempDir())
	db := filepath.Join(t.TempDir(), "metal.db")

	_, err := run(t, "seed", "--db-path", db)
	require.NoError(t, err)

	out, err := run(t, "alert", "add", "--db-path", db,
		"--condition", "greater_than", "--threshold", "85000", "--email", "a@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "rule 1: Gold Price in INR greater_than 85000 -> a@example.com")
}
