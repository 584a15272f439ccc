package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeBars(t *testing.T, dir string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("time,open,high,low,close,volume\n")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 106, 107, 104, 110, 111, 108, 115}
	for i, c := range closes {
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,1000\n", t0.AddDate(0, 0, i).Format(time.RFC3339), c, c, c, c)
	}
	path := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), end)

	_, _, err = dayBounds(time.UTC, "03/10/2024")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "backtester version "+version)
}

func TestBacktestAndJournal(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir)
	db := filepath.Join(dir, "runs.db")

	out, err := execute(t, "backtest", "-d", bars, "-p", "buy-hold", "-a", "SPY", "--tp", "5", "--close-end", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Strategy:      buy-hold")
	assert.Contains(t, out, "Timeframe:     D1")

	out, err = execute(t, "journal", "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "buy-hold")
	assert.Contains(t, out, "SPY")
}

func TestBacktestRequiresData(t *testing.T) {
	_, err := execute(t, "backtest", "-d", "", "--db", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--data or --config is required")
}

func TestSweepRanks(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir)

	out, err := execute(t, "sweep", "-d", bars, "-p", "buy-hold", "--tp-grid", "3,5,8", "--close-end", "--db", "", "--rank", "pnl", "-w", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "buy-hold[sl=0 tp=3 trail=0 bars=0]")
	assert.Contains(t, out, "buy-hold[sl=0 tp=8 trail=0 bars=0]")

	_, err = execute(t, "sweep", "-d", bars, "-p", "buy-hold", "--db", "", "--rank", "luck")
	assert.ErrorContains(t, err, "unknown rank metric")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy: ema-cross on SPY")
}
