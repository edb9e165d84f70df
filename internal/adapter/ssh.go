package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"linkwatch/internal/domain"
)

// sshConn adapts an interactive ssh shell to the Conn interface.
// Reads are fed by a pump goroutine so that deadlines can be honored.
type sshConn struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser

	chunks chan []byte
	done   chan struct{}
	err    error // set before chunks is closed

	mu       sync.Mutex
	deadline time.Time
	leftover []byte
	closed   sync.Once
}

// dialSSH connects, authenticates with the router's password and starts an
// interactive shell on a pseudo-terminal.
func dialSSH(ctx context.Context, router domain.Device, timeout time.Duration) (Conn, error) {
	config := &ssh.ClientConfig{
		User: router.Credentials.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(router.Credentials.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = router.Credentials.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := router.SessionAddr()

	// Create dialer with context support
	dialer := &net.Dialer{Timeout: timeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, probeErr("dial", router.Name, ErrConnect, err)
	}

	// ClientConfig.Timeout only covers ssh.Dial, so the handshake and shell
	// setup are bounded here by a connection deadline and by ctx.
	deadline := time.Now().Add(timeout)
	if err := raw.SetDeadline(deadline); err != nil {
		raw.Close()
		return nil, probeErr("dial", router.Name, ErrConnect, err)
	}
	stop := context.AfterFunc(ctx, func() { raw.Close() })

	conn, err := handshake(raw, addr, router.Name, config)
	if !stop() {
		if conn != nil {
			conn.Close()
		}
		return nil, probeErr("login", router.Name, ErrProbeTimeout, ctx.Err())
	}
	if err != nil {
		raw.Close()
		if isTimeout(err) || !time.Now().Before(deadline) {
			return nil, probeErr("login", router.Name, ErrProbeTimeout, err)
		}
		return nil, err
	}

	if err := raw.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, probeErr("dial", router.Name, ErrConnect, err)
	}
	return conn, nil
}

// handshake authenticates over raw and starts the interactive shell
func handshake(raw net.Conn, addr, target string, config *ssh.ClientConfig) (*sshConn, error) {
	sshConnRaw, chans, reqs, err := ssh.NewClientConn(raw, addr, config)
	if err != nil {
		return nil, probeErr("login", target, ErrAuth, err)
	}
	client := ssh.NewClient(sshConnRaw, chans, reqs)

	conn, err := startShell(client)
	if err != nil {
		client.Close()
		return nil, probeErr("dial", target, ErrConnect, err)
	}
	return conn, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func startShell(client *ssh.Client) (*sshConn, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 40, 120, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("shell: %w", err)
	}

	c := &sshConn{
		client:  client,
		session: session,
		stdin:   stdin,
		chunks:  make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	go c.pump(stdout)
	return c, nil
}

func (c *sshConn) pump(r io.Reader) {
	defer close(c.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case c.chunks <- chunk:
			case <-c.done:
				c.err = io.EOF
				return
			}
		}
		if err != nil {
			c.err = err
			return
		}
	}
}

func (c *sshConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	if len(c.leftover) > 0 {
		n := copy(p, c.leftover)
		c.leftover = c.leftover[n:]
		c.mu.Unlock()
		return n, nil
	}
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case chunk, ok := <-c.chunks:
		if !ok {
			return 0, c.err
		}
		n := copy(p, chunk)
		if n < len(chunk) {
			c.mu.Lock()
			c.leftover = append(c.leftover, chunk[n:]...)
			c.mu.Unlock()
		}
		return n, nil
	case <-timeout:
		return 0, os.ErrDeadlineExceeded
	}
}

func (c *sshConn) Write(p []byte) (int, error) {
	return c.stdin.Write(p)
}

func (c *sshConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *sshConn) Close() error {
	var err error
	c.closed.Do(func() {
		close(c.done)
		c.session.Close()
		err = c.client.Close()
	})
	return err
}
