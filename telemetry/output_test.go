package telemetry

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/arena/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v, want nil, nil", om, err)
	}
	// Methods on a nil manager are no-ops.
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("WriteTelemetry on nil = %v", err)
	}
	if err := om.WriteGenomeDump("x"); err != nil {
		t.Errorf("WriteGenomeDump on nil = %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil = %v", err)
	}
}

func TestOutputManagerTelemetryCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}

	for i := range 3 {
		stats := WindowStats{WindowEndTick: int64(600 * (i + 1)), Robots: 4 + i, Lineages: 2}
		if err := om.WriteTelemetry(stats); err != nil {
			t.Fatalf("WriteTelemetry error: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{}, 600); err != nil {
		t.Fatalf("WritePerf error: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,robots,cogs,bullets,births") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[0], "WindowStartTick") {
		t.Error("excluded column written")
	}
	if !strings.HasPrefix(lines[3], "1800,6,") {
		t.Errorf("last row = %q, want prefix 1800,6,", lines[3])
	}

	perf, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(perf), "window_end,avg_tick_us") {
		t.Errorf("perf.csv header = %q", strings.SplitN(string(perf), "\n", 2)[0])
	}
}

func TestOutputManagerGenomeDump(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	text := strings.Repeat("  0 _FORWD  (  5 [  0],   0 [  0],   0 [  0])\n", 200)
	if err := om.WriteGenomeDump(text); err != nil {
		t.Fatalf("WriteGenomeDump error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "genomes.txt.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) >= len(text) {
		t.Errorf("compressed size %d not smaller than %d", len(raw), len(text))
	}

	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("decompress error: %v", err)
	}
	if string(got) != text {
		t.Error("round-tripped dump differs")
	}
}

func TestOutputManagerWriteConfig(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig error: %v", err)
	}
	back, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if back.VM.StepTax != cfg.VM.StepTax || back.Registry.Capacity != cfg.Registry.Capacity {
		t.Error("written config does not reload to the same values")
	}
}
