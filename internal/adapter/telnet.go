package adapter

import (
	"context"
	"net"
	"time"

	"github.com/ziutek/telnet"

	"linkwatch/internal/domain"
)

// dialTelnet opens the router's telnet port. Option negotiation is handled
// by the telnet connection; callers only see the data stream.
func dialTelnet(ctx context.Context, router domain.Device, timeout time.Duration) (Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}

	raw, err := dialer.DialContext(ctx, "tcp", router.SessionAddr())
	if err != nil {
		return nil, probeErr("dial", router.Name, ErrConnect, err)
	}

	conn, err := telnet.NewConn(raw)
	if err != nil {
		raw.Close()
		return nil, probeErr("dial", router.Name, ErrConnect, err)
	}

	// Routers expect CRLF line endings
	conn.SetUnixWriteMode(true)

	return conn, nil
}
