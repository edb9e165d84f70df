package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPingArgs(t *testing.T) {
	tests := []struct {
		goos    string
		timeout time.Duration
		want    []string
	}{
		{"linux", 2 * time.Second, []string{"-c", "1", "-W", "2", "10.0.0.1"}},
		{"linux", 200 * time.Millisecond, []string{"-c", "1", "-W", "1", "10.0.0.1"}},
		{"darwin", 2 * time.Second, []string{"-c", "1", "-t", "2", "10.0.0.1"}},
		{"windows", 2 * time.Second, []string{"-n", "1", "-w", "2000", "10.0.0.1"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			assert.Equal(t, tt.want, pingArgs(tt.goos, tt.timeout, "10.0.0.1"))
		})
	}
}

func TestLocalProbeReachable(t *testing.T) {
	ctx := context.Background()

	t.Run("zero exit status is reachable", func(t *testing.T) {
		var gotName string
		var gotArgs []string
		probe := NewLocalProbe(time.Second, nil).WithRunner(func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		})

		assert.True(t, probe.Reachable(ctx, "192.168.116.11"))
		assert.Equal(t, "ping", gotName)
		assert.Equal(t, "192.168.116.11", gotArgs[len(gotArgs)-1])
	})

	t.Run("non-zero exit status is unreachable", func(t *testing.T) {
		probe := NewLocalProbe(time.Second, nil).WithRunner(func(context.Context, string, ...string) error {
			return errors.New("exit status 1")
		})
		assert.False(t, probe.Reachable(ctx, "192.168.116.11"))
	})

	t.Run("runner gets a bounded context", func(t *testing.T) {
		var deadline time.Time
		var ok bool
		probe := NewLocalProbe(time.Second, nil).WithRunner(func(ctx context.Context, _ string, _ ...string) error {
			deadline, ok = ctx.Deadline()
			return nil
		})

		probe.Reachable(ctx, "10.0.0.1")
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
	})
}
