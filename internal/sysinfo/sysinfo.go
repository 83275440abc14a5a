// Package sysinfo samples host CPU and memory usage.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"go.klb.dev/clipmon/internal/event"
)

// Sampler reads system-wide usage. The zero value is not usable; call New.
type Sampler struct {
	cpuPercent func(ctx context.Context) (float64, error)
	memPercent func(ctx context.Context) (float64, error)
}

// New returns a Sampler backed by gopsutil.
//
// CPU usage is measured between consecutive calls rather than by blocking for
// an interval, so Sample returns immediately. The first sample after start
// covers the time since boot.
func New() *Sampler {
	return &Sampler{
		cpuPercent: func(ctx context.Context) (float64, error) {
			p, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				return 0, err
			}
			if len(p) == 0 {
				return 0, errors.New("no cpu stats")
			}
			return p[0], nil
		},
		memPercent: func(ctx context.Context) (float64, error) {
			vm, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return vm.UsedPercent, nil
		},
	}
}

// Sample returns the current usage.
func (s *Sampler) Sample(ctx context.Context) (event.Usage, error) {
	c, err := s.cpuPercent(ctx)
	if err != nil {
		return event.Usage{}, fmt.Errorf("cpu usage: %w", err)
	}
	m, err := s.memPercent(ctx)
	if err != nil {
		return event.Usage{}, fmt.Errorf("memory usage: %w", err)
	}
	return event.Usage{CPUPercent: c, MemPercent: m}, nil
}

// Task returns a scheduler task body that samples and notifies sink. Failures
// are reported as warnings once per streak so a broken sensor does not flood
// the log every second.
func (s *Sampler) Task(sink event.Sink) func(ctx context.Context) {
	failing := false
	return func(ctx context.Context) {
		u, err := s.Sample(ctx)
		if err != nil {
			if !failing {
				sink.Notify(event.Warning(event.SourceSysinfo, "failed to get system info", err))
			}
			failing = true
			return
		}
		failing = false
		sink.Notify(event.Event{
			Kind:   event.KindUsage,
			Source: event.SourceSysinfo,
			Time:   time.Now(),
			Usage:  &u,
		})
	}
}

// Format renders u the way the status line shows it.
func Format(u event.Usage) string {
	return fmt.Sprintf("CPU Usage: %.1f%% | Memory Usage: %.1f%%", u.CPUPercent, u.MemPercent)
}
