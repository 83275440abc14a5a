package sysinfo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipmon/internal/event"
)

func fakeSampler(cpuErr error) *Sampler {
	return &Sampler{
		cpuPercent: func(context.Context) (float64, error) { return 12.5, cpuErr },
		memPercent: func(context.Context) (float64, error) { return 48.3, nil },
	}
}

func TestSample(t *testing.T) {
	u, err := fakeSampler(nil).Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, event.Usage{CPUPercent: 12.5, MemPercent: 48.3}, u)
	assert.Equal(t, "CPU Usage: 12.5% | Memory Usage: 48.3%", Format(u))
}

func TestTaskWarnsOncePerFailureStreak(t *testing.T) {
	s := fakeSampler(errors.New("no /proc"))
	var got []event.Event
	run := s.Task(event.SinkFunc(func(ev event.Event) { got = append(got, ev) }))

	run(context.Background())
	run(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, event.KindWarning, got[0].Kind)

	s.cpuPercent = func(context.Context) (float64, error) { return 1, nil }
	run(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, event.KindUsage, got[1].Kind)
	require.NotNil(t, got[1].Usage)
	assert.Equal(t, 1.0, got[1].Usage.CPUPercent)
}
