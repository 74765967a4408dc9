package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/weiihann/looptime/stopwatch"
)

func runs() []stopwatch.Measurement {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return []stopwatch.Measurement{
		{Start: start, End: start.Add(3125 * time.Microsecond), Iterations: 1000000},
		{Start: start, End: start.Add(452 * time.Microsecond), Iterations: 1000000},
	}
}

func TestRegistry(t *testing.T) {
	reg, err := Registry(runs())
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}

	n, err := testutil.GatherAndCount(reg, "looptime_elapsed_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("elapsed samples = %d, want 2", n)
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, runs()); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	output := buf.String()

	for _, want := range []string{
		"# TYPE looptime_elapsed_seconds gauge",
		`looptime_elapsed_seconds{run="1"} 0.003125`,
		`looptime_elapsed_seconds{run="2"} 0.000452`,
		`looptime_loop_iterations{run="1"} 1e+06`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "looptime.prom")

	if err := WriteTextfile(path, runs()); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}

	if !strings.Contains(string(data), "looptime_elapsed_seconds") {
		t.Errorf("metrics file missing elapsed gauge:\n%s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the metrics file, found %d entries", len(entries))
	}
}

func TestWriteTextfileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "looptime.prom")

	if err := WriteTextfile(path, runs()); err == nil {
		t.Error("expected error for missing directory")
	}
}
