// Package hostinfo describes the machine a measurement ran on.
package hostinfo

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info holds the host fields attached to structured reports.
type Info struct {
	OS            string `json:"os" yaml:"os"`
	Platform      string `json:"platform,omitempty" yaml:"platform,omitempty"`
	KernelVersion string `json:"kernel_version,omitempty" yaml:"kernel_version,omitempty"`
	Architecture  string `json:"architecture" yaml:"architecture"`
	CPUModel      string `json:"cpu_model,omitempty" yaml:"cpu_model,omitempty"`
	CPUThreads    int    `json:"cpu_threads,omitempty" yaml:"cpu_threads,omitempty"`
	RAMBytes      uint64 `json:"ram_bytes,omitempty" yaml:"ram_bytes,omitempty"`
	GoVersion     string `json:"go_version" yaml:"go_version"`
}

// Detect probes the host. A failing probe is logged and leaves its
// fields empty.
func Detect(ctx context.Context, logger *slog.Logger) Info {
	info := Info{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
	}

	if h, err := host.InfoWithContext(ctx); err != nil {
		logger.WarnContext(ctx, "failed to read host info",
			slog.String("error", err.Error()),
		)
	} else {
		info.Platform = h.Platform
		info.KernelVersion = h.KernelVersion
	}

	if cpus, err := cpu.InfoWithContext(ctx); err != nil {
		logger.WarnContext(ctx, "failed to read cpu info",
			slog.String("error", err.Error()),
		)
	} else if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		logger.WarnContext(ctx, "failed to count cpus",
			slog.String("error", err.Error()),
		)
	} else {
		info.CPUThreads = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		logger.WarnContext(ctx, "failed to read memory info",
			slog.String("error", err.Error()),
		)
	} else {
		info.RAMBytes = vm.Total
	}

	return info
}
