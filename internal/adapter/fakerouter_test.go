package adapter

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"linkwatch/internal/domain"
)

// fakeRouter emulates the command line of a lab router well enough to
// exercise login, pagination and the prompt handshake.
type fakeRouter struct {
	hostname string
	username string
	password string
	pageSize int               // lines per page, 0 disables paging
	outputs  map[string]string // command line -> output
	hang     map[string]bool   // commands that never return the prompt
	silent   bool              // never sends a login prompt
	banner   string            // sent after login, before the first prompt

	mu       sync.Mutex
	commands []string
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		hostname: "R1",
		username: "cisco",
		password: "cisco",
		outputs:  make(map[string]string),
		hang:     make(map[string]bool),
	}
}

func testTiming() Timing {
	return Timing{
		Dial:      time.Second,
		Prompt:    300 * time.Millisecond,
		Page:      300 * time.Millisecond,
		Ping:      time.Second,
		Liveness:  time.Second,
		LocalPing: time.Second,
	}
}

func (f *fakeRouter) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeRouter) record(line string) {
	f.mu.Lock()
	f.commands = append(f.commands, line)
	f.mu.Unlock()
}

// listenTelnet serves the fake over plain TCP and returns a device for it
func (f *fakeRouter) listenTelnet(t *testing.T) domain.Device {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				f.serve(c, true)
			}()
		}
	}()

	return f.device(t, ln.Addr().String(), domain.TransportTelnet)
}

// listenSSH serves the fake behind an ssh server with password auth
func (f *fakeRouter) listenSSH(t *testing.T) domain.Device {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == f.username && string(pass) == f.password {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serveSSH(c, cfg)
		}
	}()

	return f.device(t, ln.Addr().String(), domain.TransportSSH)
}

func (f *fakeRouter) device(t *testing.T, addr string, transport domain.Transport) domain.Device {
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return domain.Device{
		Name:        f.hostname,
		Kind:        domain.DeviceKindRouter,
		Address:     host,
		Port:        port,
		Transport:   transport,
		Credentials: &domain.Credentials{Username: "cisco", Password: "cisco"},
	}
}

func (f *fakeRouter) serveSSH(nc net.Conn, cfg *ssh.ServerConfig) {
	defer nc.Close()
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for nch := range chans {
		if nch.ChannelType() != "session" {
			_ = nch.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, requests, err := nch.Accept()
		if err != nil {
			return
		}
		go func() {
			for req := range requests {
				switch req.Type {
				case "pty-req", "shell":
					_ = req.Reply(true, nil)
				default:
					_ = req.Reply(false, nil)
				}
				if req.Type == "shell" {
					go func() {
						f.serve(ch, false)
						ch.Close()
					}()
				}
			}
		}()
	}
}

func (f *fakeRouter) serve(rw io.ReadWriter, login bool) {
	r := bufio.NewReader(rw)
	w := func(s string) { _, _ = io.WriteString(rw, s) }

	if f.silent {
		_, _ = io.Copy(io.Discard, r)
		return
	}

	if login {
		authed := false
		for attempt := 0; attempt < 3 && !authed; attempt++ {
			w("\r\nUser Access Verification\r\n\r\nUsername: ")
			user, err := readLine(r)
			if err != nil {
				return
			}
			w("Password: ")
			pass, err := readLine(r)
			if err != nil {
				return
			}
			if user == f.username && pass == f.password {
				authed = true
				break
			}
			w("\r\n% Login invalid\r\n")
		}
		if !authed {
			return
		}
	}

	prompt := f.hostname + "#"
	w("\r\n" + f.banner + prompt)

	for {
		line, err := readLine(r)
		if err != nil {
			return
		}
		f.record(line)
		if line == "exit" {
			return
		}

		out, ok := f.outputs[line]
		if !ok {
			out = "% Invalid input detected at '^' marker.\n"
		}

		w(line + "\r\n")
		for i, l := range strings.SplitAfter(out, "\n") {
			if f.pageSize > 0 && i > 0 && i%f.pageSize == 0 {
				w(" --More-- ")
				b, err := r.ReadByte()
				if err != nil || b != ' ' {
					return
				}
				w("\b\b\b\b\b\b\b\b\b\b          \b\b\b\b\b\b\b\b\b\b")
			}
			w(strings.ReplaceAll(l, "\n", "\r\n"))
		}
		if f.hang[line] {
			continue
		}
		w(prompt)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// silentPeer accepts ssh connections and never sends a banner
func silentPeer(t *testing.T) domain.Device {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()

	return newFakeRouter().device(t, ln.Addr().String(), domain.TransportSSH)
}

// closedPort returns an address nothing listens on
func closedPort(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()
	return addr.IP.String(), addr.Port
}
