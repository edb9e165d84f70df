package adapter

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkwatch/internal/domain"
)

const (
	pingOK = "Type escape sequence to abort.\n" +
		"Sending 5, 100-byte ICMP Echos to 192.168.100.11, timeout is 2 seconds:\n" +
		"!!!!!\n" +
		"Success rate is 100 percent (5/5), round-trip min/avg/max = 1/2/4 ms\n"
	pingPartial = "Type escape sequence to abort.\n" +
		"Sending 5, 100-byte ICMP Echos to 192.168.100.12, timeout is 2 seconds:\n" +
		".!!!!\n" +
		"Success rate is 80 percent (4/5), round-trip min/avg/max = 1/2/4 ms\n"
)

func TestRouterProbeCheckAccessible(t *testing.T) {
	ctx := context.Background()
	probe := NewRouterProbe(testTiming(), nil)

	t.Run("open port", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		addr := ln.Addr().(*net.TCPAddr)
		router := domain.Device{Name: "R1", Kind: domain.DeviceKindRouter, Address: "127.0.0.1", Port: addr.Port}
		assert.True(t, probe.CheckAccessible(ctx, router))
	})

	t.Run("closed port", func(t *testing.T) {
		host, port := closedPort(t)
		router := domain.Device{Name: "R1", Kind: domain.DeviceKindRouter, Address: host, Port: port}
		assert.False(t, probe.CheckAccessible(ctx, router))
	})
}

func TestRouterProbeFetchDiagnostics(t *testing.T) {
	ctx := context.Background()
	probe := NewRouterProbe(testTiming(), nil)

	t.Run("returns all commands", func(t *testing.T) {
		fake := newFakeRouter()
		fake.outputs["show running-config"] = "hostname R1\n"
		router := fake.listenTelnet(t)

		diag := probe.FetchDiagnostics(ctx, router)
		assert.True(t, diag.OK())
		assert.Len(t, diag, len(DiagnosticCommands))
		assert.Contains(t, diag[DiagRunningConfig], "hostname R1")
	})

	t.Run("auth failure yields empty mapping", func(t *testing.T) {
		fake := newFakeRouter()
		router := fake.listenTelnet(t)
		router.Credentials = &domain.Credentials{Username: "cisco", Password: "bad"}

		diag := probe.FetchDiagnostics(ctx, router)
		assert.False(t, diag.OK())
		assert.Empty(t, diag)
	})

	t.Run("unreachable yields empty mapping", func(t *testing.T) {
		host, port := closedPort(t)
		router := domain.Device{
			Name: "R3", Kind: domain.DeviceKindRouter, Address: host, Port: port,
			Credentials: &domain.Credentials{Username: "cisco", Password: "cisco"},
		}
		assert.Empty(t, probe.FetchDiagnostics(ctx, router))
	})

	t.Run("run diagnostics reports the failure class", func(t *testing.T) {
		fake := newFakeRouter()
		fake.silent = true
		router := fake.listenTelnet(t)

		_, err := probe.RunDiagnostics(ctx, router)
		assert.Equal(t, "auth", Classify(err))
	})
}

func TestRouterProbePingFrom(t *testing.T) {
	ctx := context.Background()
	probe := NewRouterProbe(testTiming(), nil)

	fake := newFakeRouter()
	fake.outputs["ping 192.168.100.11"] = pingOK
	fake.outputs["ping 192.168.100.12"] = pingPartial
	router := fake.listenTelnet(t)

	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"all echoes returned", "192.168.100.11", true},
		{"partial loss is failure", "192.168.100.12", false},
		{"unexpected output is failure", "192.168.100.13", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, probe.PingFrom(ctx, router, tt.addr))
		})
	}

	t.Run("unparseable output is a parse mismatch", func(t *testing.T) {
		_, err := probe.pingFrom(ctx, router, "192.168.100.13")
		assert.ErrorIs(t, err, ErrParseMismatch)
	})

	t.Run("session failure is failure", func(t *testing.T) {
		host, port := closedPort(t)
		dead := domain.Device{
			Name: "R1", Kind: domain.DeviceKindRouter, Address: host, Port: port,
			Credentials: &domain.Credentials{Username: "cisco", Password: "cisco"},
		}
		assert.False(t, probe.PingFrom(ctx, dead, "192.168.100.11"))
	})
}
