package main

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project8/pmana/campaign"
	"github.com/project8/pmana/fitting"
	"github.com/project8/pmana/peak"
	"github.com/project8/pmana/temperature"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func channelDump(mu, sigma float64) string {
	var b strings.Builder
	b.WriteString("LECROYWR\nSegments;1\nSegmentSize;101\nSegment;TrigTime;TimeSinceSegment1\nBinCenter;Population\n")
	for i := 0; i <= 100; i++ {
		x := float64(i) * 0.1
		fmt.Fprintf(&b, "%.4f;%.6f\n", x, 100*math.Exp(-(x-mu)*(x-mu)/(2*sigma*sigma)))
	}
	return b.String()
}

func measurementDir(t *testing.T, root string, n int) string {
	dir := filepath.Join(root, fmt.Sprintf("%05d", n))
	writeFile(t, filepath.Join(dir, fmt.Sprintf("F1--run--%05d.txt", n)), channelDump(4, 0.5))
	writeFile(t, filepath.Join(dir, fmt.Sprintf("F2--run--%05d.txt", n)), channelDump(6, 0.7))
	return dir
}

func TestFormat(t *testing.T) {
	in, target := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "F1--run--00004.txt"), "a")
	writeFile(t, filepath.Join(in, "F2--run--00004.txt"), "b")
	writeFile(t, filepath.Join(in, "notes.txt"), "c")

	out, err := run(t, "format", in, target)
	require.NoError(t, err)
	assert.Contains(t, out, "placed 2 files in 1 measurements, skipped 1")
	assert.FileExists(t, filepath.Join(target, "00004", "F2--run--00004.txt"))
}

func TestAnalyze(t *testing.T) {
	root := t.TempDir()
	measurementDir(t, root, 1)
	measurementDir(t, root, 2)

	out, err := run(t, "analyze", root, "--timezone", "UTC")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "measurement,time,t1,t2,F1_mu"), out)

	tablePath := filepath.Join(t.TempDir(), "results.json")
	_, err = run(t, "analyze", root, "-o", tablePath, "--rebin")
	require.NoError(t, err)
	table, err := campaign.ReadTable(tablePath)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"F1", "F2"}, table.Channels)
	assert.True(t, table.Rows[0].Channels[0].Converged)
	assert.InDelta(t, 4.0, table.Rows[0].Channels[0].Params.Mu, 0.05)
}

func TestAnalyzeBadSettings(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, "analyze", root, "--delimiter", ";;")
	assert.ErrorContains(t, err, "delimiter")

	_, err = run(t, "analyze", root, "--temperature-calibration", "pt100")
	assert.ErrorContains(t, err, "pt100")

	_, err = run(t, "analyze", root, "--log-level", "LOUD")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	root := t.TempDir()
	measurementDir(t, root, 1)
	cfg := filepath.Join(t.TempDir(), "pmana.yaml")
	writeFile(t, cfg, "log-level: WARNING\nchannel-glob: \"F2*\"\ntimezone: UTC\n")

	out, err := run(t, "--config", cfg, "analyze", root)
	require.NoError(t, err)
	assert.Contains(t, out, "F2_mu")
	assert.NotContains(t, out, "F1_mu")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "analyze", root)
	assert.Error(t, err)
}

func TestPlot(t *testing.T) {
	dir := measurementDir(t, t.TempDir(), 3)

	out, err := run(t, "plot", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "F1: mu")
	assert.Contains(t, out, "F2: mu")
	assert.FileExists(t, filepath.Join(dir, "00003.png"))

	single := filepath.Join(t.TempDir(), "f2.svg")
	out, err = run(t, "plot", dir, "--channel", "F2", "-o", single)
	require.NoError(t, err)
	assert.NotContains(t, out, "F1")
	assert.FileExists(t, single)

	_, err = run(t, "plot", dir, "--channel", "F7")
	assert.Error(t, err)
}

func timedTable(t0 time.Time, numbers ...int) *campaign.Table {
	tbl := &campaign.Table{Channels: []string{"F1"}}
	for i, n := range numbers {
		tbl.Rows = append(tbl.Rows, campaign.Row{
			Measurement: n,
			Time:        t0.Add(time.Duration(i) * time.Hour),
			Channels: []peak.Result{{Channel: "F1", Converged: true,
				Params: fitting.Params{Mu: 4 + 0.1*float64(i), Sigma: 0.5},
				Errors: fitting.Params{Mu: 0.01, Sigma: 0.01}}},
		})
	}
	return tbl
}

func TestMergeAndTrend(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, campaign.Dump(timedTable(time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC), 5, 6), a))
	require.NoError(t, campaign.Dump(timedTable(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC), 1, 2), b))

	merged := filepath.Join(dir, "merged.csv")
	_, err := run(t, "merge", merged, a, b)
	require.NoError(t, err)
	table, err := campaign.ReadTable(merged)
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())
	assert.Equal(t, 1, table.Rows[0].Measurement)
	assert.Equal(t, 6, table.Rows[3].Measurement)

	_, err = run(t, "trend", merged, "--quantity", "sigma")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "merged_F1_sigma.png"))

	_, err = run(t, "trend", merged, "--axis", "t1")
	assert.Error(t, err)
}

const viewBody = `{"total_rows": 3, "offset": 0, "rows": [
 {"id": "a", "key": "2024-03-14T10:00:00Z", "value": {"sensor_name": "terminator_temp", "uncalibrated_value": "1180.5 ohm", "calibrated_value": "20.5 K", "timestamp_localstring": "2024-03-14T10:00:00Z"}},
 {"id": "b", "key": "2024-03-14T10:05:00Z", "value": {"sensor_name": "cold_head", "uncalibrated_value": "900 ohm", "calibrated_value": "30 K", "timestamp_localstring": "2024-03-14T10:05:00Z"}},
 {"id": "c", "key": "2024-03-14T10:10:00Z", "value": {"sensor_name": "terminator_temp", "uncalibrated_value": "1179 ohm", "calibrated_value": "21 K", "timestamp_localstring": "2024-03-14T10:10:00Z"}}
]}`

func TestSlow2csv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(viewBody))
	}))
	defer srv.Close()
	common := []string{"slow2csv", "--couch-host", srv.URL,
		"--from", "2024-03-14T10:00:00Z", "--to", "2024-03-14T11:00:00Z"}

	out, err := run(t, common...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp, unix_ts, uncalibrated (ohm), calibrated (K)", lines[0])
	assert.Equal(t, "2024-03-14T10:00:00Z, 1710410400, 1180.5, 20.5", lines[1])

	out, err = run(t, append(common, "--get-names")...)
	require.NoError(t, err)
	assert.Equal(t, "terminator_temp\ncold_head\n", out)

	logPath := filepath.Join(t.TempDir(), "Temperature.txt")
	_, err = run(t, append(common, "--timezone", "UTC", "--t2-channel", "cold_head", "--temperature-log", logPath)...)
	require.NoError(t, err)
	zero := time.Duration(0)
	tlog, err := temperature.Load(logPath, temperature.Options{Location: time.UTC, Delay: &zero})
	require.NoError(t, err)
	require.Equal(t, 2, tlog.Len())
	assert.Equal(t, 20.5, tlog.Readings[0].T1)
	assert.True(t, math.IsNaN(tlog.Readings[0].T2))
	assert.Equal(t, 21.0, tlog.Readings[1].T1)
	assert.True(t, math.IsNaN(tlog.Readings[1].T2))

	_, err = run(t, "slow2csv", "--couch-host", srv.URL, "--from", "yesterday")
	assert.Error(t, err)
}
