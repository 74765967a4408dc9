// Package metrics exports loop timing measurements in the Prometheus text
// exposition format, suitable for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/weiihann/looptime/stopwatch"
)

const namespace = "looptime"

// Registry builds a private registry holding one sample per run.
func Registry(ms []stopwatch.Measurement) (*prometheus.Registry, error) {
	iterations := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "loop_iterations",
		Help:      "Number of empty loop iterations in the run.",
	}, []string{"run"})

	elapsed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "elapsed_seconds",
		Help:      "Elapsed time of the run, truncated to microseconds.",
	}, []string{"run"})

	reg := prometheus.NewRegistry()
	if err := reg.Register(iterations); err != nil {
		return nil, fmt.Errorf("register iterations: %w", err)
	}
	if err := reg.Register(elapsed); err != nil {
		return nil, fmt.Errorf("register elapsed: %w", err)
	}

	for i, m := range ms {
		run := strconv.Itoa(i + 1)
		iterations.WithLabelValues(run).Set(float64(m.Iterations))
		elapsed.WithLabelValues(run).Set(m.Seconds())
	}

	return reg, nil
}

// Encode writes the runs to w in the text exposition format.
func Encode(w io.Writer, ms []stopwatch.Measurement) error {
	reg, err := Registry(ms)
	if err != nil {
		return err
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}

	return nil
}

// WriteTextfile writes the runs to path. The file is written under a
// temporary name in the same directory and renamed into place, so a
// collector never reads a partial file.
func WriteTextfile(path string, ms []stopwatch.Measurement) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".looptime-*.prom")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := Encode(tmpFile, ms); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())

		return fmt.Errorf("encode metrics: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())

		return fmt.Errorf("close metrics file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), 0o644); err != nil {
		os.Remove(tmpFile.Name())

		return fmt.Errorf("chmod metrics file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		os.Remove(tmpFile.Name())

		return fmt.Errorf("rename metrics file: %w", err)
	}

	return nil
}
