package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"linkwatch/internal/domain"
)

// Literal markers of the router command line
const (
	usernamePrompt = "Username:"
	passwordPrompt = "Password:"
	moreMarker     = "--More--"
	continueKey    = " "
	exitCommand    = "exit"
)

// promptSettle is how long the stream must stay quiet after a terminator
// for it to be taken as the prompt
const promptSettle = 50 * time.Millisecond

// promptTerminators end the command prompt in user and privileged mode
var promptTerminators = []string{">", "#"}

// Timing holds the bounded waits applied at each protocol step
type Timing struct {
	Dial      time.Duration
	Prompt    time.Duration
	Page      time.Duration
	Ping      time.Duration
	Liveness  time.Duration
	LocalPing time.Duration
}

// DefaultTiming returns the lab defaults
func DefaultTiming() Timing {
	return Timing{
		Dial:      10 * time.Second,
		Prompt:    5 * time.Second,
		Page:      3 * time.Second,
		Ping:      12 * time.Second,
		Liveness:  5 * time.Second,
		LocalPing: 2 * time.Second,
	}
}

// Conn is the byte stream a Session runs over
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// Command is one named command line sent to a router
type Command struct {
	Name string
	Line string
}

// Session is an authenticated command-line session with one router.
// A Session is not safe for concurrent use.
type Session struct {
	conn    Conn
	target  string
	prompt  string
	pending []byte
	timing  Timing
	logger  *slog.Logger
}

// OpenSession dials the router over its configured transport and logs in.
// On any failure the connection is closed and no session is returned.
func OpenSession(ctx context.Context, router domain.Device, timing Timing, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if router.Credentials == nil {
		return nil, probeErr("login", router.Name, ErrAuth, errors.New("no credentials"))
	}

	var (
		conn Conn
		err  error
	)
	switch router.SessionTransport() {
	case domain.TransportSSH:
		conn, err = dialSSH(ctx, router, timing.Dial)
	default:
		conn, err = dialTelnet(ctx, router, timing.Dial)
	}
	if err != nil {
		return nil, err
	}

	s := newSession(conn, router.Name, timing, logger)

	if router.SessionTransport() == domain.TransportSSH {
		// ssh authenticates in the transport handshake
		err = s.awaitPrompt()
	} else {
		err = s.login(router.Credentials.Username, router.Credentials.Password)
	}
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger.Debug("session open", "router", router.Name, "prompt", s.prompt)
	return s, nil
}

func newSession(conn Conn, target string, timing Timing, logger *slog.Logger) *Session {
	return &Session{
		conn:   conn,
		target: target,
		timing: timing,
		logger: logger,
	}
}

// login answers the Username/Password prompts and waits for the command prompt
func (s *Session) login(username, password string) error {
	if _, _, err := s.readUntil(s.timing.Prompt, usernamePrompt); err != nil {
		return probeErr("login", s.target, ErrAuth, fmt.Errorf("waiting for %q: %w", usernamePrompt, err))
	}
	if err := s.writeLine(username); err != nil {
		return probeErr("login", s.target, ErrConnect, err)
	}

	if _, _, err := s.readUntil(s.timing.Prompt, passwordPrompt); err != nil {
		return probeErr("login", s.target, ErrAuth, fmt.Errorf("waiting for %q: %w", passwordPrompt, err))
	}
	if err := s.writeLine(password); err != nil {
		return probeErr("login", s.target, ErrConnect, err)
	}

	return s.awaitPrompt()
}

// awaitPrompt waits for a prompt terminator and remembers the prompt line.
// A terminator only counts once the router stops sending, so banner lines
// made of '#' or '>' are skipped. A second Username prompt means the
// credentials were rejected.
func (s *Session) awaitPrompt() error {
	markers := append([]string{usernamePrompt}, promptTerminators...)
	deadline := time.Now().Add(s.timing.Prompt)

	var seen strings.Builder
	for {
		out, idx, err := s.readUntil(time.Until(deadline), markers...)
		seen.WriteString(out)
		if err != nil {
			return probeErr("login", s.target, ErrAuth, fmt.Errorf("waiting for prompt: %w", err))
		}
		if idx == 0 {
			return probeErr("login", s.target, ErrAuth, errors.New("credentials rejected"))
		}
		if !s.settled() {
			continue
		}

		s.prompt = lastLine(seen.String())
		if s.prompt == "" {
			s.prompt = markers[idx]
		}
		return nil
	}
}

// settled reports whether the stream pauses after the bytes consumed so far
func (s *Session) settled() bool {
	if strings.TrimLeft(string(s.pending), " ") != "" {
		return false
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(promptSettle)); err != nil {
		return true
	}
	buf := make([]byte, 4096)
	n, _ := s.conn.Read(buf)
	s.pending = append(s.pending, buf[:n]...)
	return strings.TrimLeft(string(s.pending), " ") == ""
}

// Prompt returns the command prompt learned at login
func (s *Session) Prompt() string {
	return s.prompt
}

// Run sends one command and collects its output, answering pagination
// markers until the prompt returns, the stream ends or a read times out.
func (s *Session) Run(line string, timeout time.Duration) (string, error) {
	if err := s.writeLine(line); err != nil {
		return "", probeErr("command", s.target, ErrConnect, err)
	}

	var out strings.Builder
	for {
		chunk, idx, err := s.readUntil(timeout, moreMarker, s.prompt)
		out.WriteString(strings.ReplaceAll(chunk, moreMarker, ""))
		if err != nil {
			// Timeout and EOF both end this command's output
			s.logger.Debug("command read ended", "router", s.target, "command", line, "reason", err)
			break
		}
		if idx != 0 {
			break
		}
		if err := s.write(continueKey); err != nil {
			return "", probeErr("command", s.target, ErrConnect, err)
		}
	}

	return cleanOutput(out.String(), line, s.prompt), nil
}

// RunCommands runs each command in order. The result has one entry per
// command name.
func (s *Session) RunCommands(ctx context.Context, cmds []Command) (map[string]string, error) {
	results := make(map[string]string, len(cmds))
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return nil, probeErr("command", s.target, ErrProbeTimeout, err)
		}
		out, err := s.Run(cmd.Line, s.timing.Page)
		if err != nil {
			return nil, err
		}
		results[cmd.Name] = out
	}
	return results, nil
}

// Close sends exit and closes the connection. Errors are ignored.
func (s *Session) Close() {
	_ = s.writeLine(exitCommand)
	_ = s.conn.Close()
}

func (s *Session) writeLine(line string) error {
	return s.write(line + "\n")
}

func (s *Session) write(data string) error {
	_, err := s.conn.Write([]byte(data))
	return err
}

// readUntil reads until the earliest of markers appears, returning the text
// up to and including it and the index of the marker that matched. Bytes
// past the marker stay buffered for the next call. On timeout or EOF the
// text read so far is returned together with the error.
func (s *Session) readUntil(timeout time.Duration, markers ...string) (string, int, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 4096)

	for {
		if out, idx, ok := s.take(markers); ok {
			return out, idx, nil
		}

		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return s.drain(), -1, probeErr("read", s.target, ErrConnect, err)
		}
		n, err := s.conn.Read(buf)
		s.pending = append(s.pending, buf[:n]...)
		if err == nil {
			continue
		}

		// Check for a marker in the final bytes before giving up
		if out, idx, ok := s.take(markers); ok {
			return out, idx, nil
		}

		if errors.Is(err, os.ErrDeadlineExceeded) {
			return s.drain(), -1, probeErr("read", s.target, ErrProbeTimeout, err)
		}
		return s.drain(), -1, probeErr("read", s.target, ErrConnect, err)
	}
}

// take consumes pending bytes through the earliest marker, if any
func (s *Session) take(markers []string) (string, int, bool) {
	pos, idx := earliest(s.pending, markers)
	if idx < 0 {
		return "", -1, false
	}
	end := pos + len(markers[idx])
	out := string(s.pending[:end])
	s.pending = append([]byte(nil), s.pending[end:]...)
	return out, idx, true
}

func (s *Session) drain() string {
	out := string(s.pending)
	s.pending = nil
	return out
}

// earliest finds the first occurrence of any marker in data
func earliest(data []byte, markers []string) (int, int) {
	pos, which := -1, -1
	for i, m := range markers {
		if m == "" {
			continue
		}
		if p := bytes.Index(data, []byte(m)); p >= 0 && (pos < 0 || p < pos) {
			pos, which = p, i
		}
	}
	return pos, which
}

// lastLine returns the final non-empty line of s, trimmed
func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n ")
	if i := strings.LastIndexAny(s, "\r\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// cleanOutput drops the command echo, the trailing prompt and the
// backspaces devices emit to erase a pagination marker.
func cleanOutput(out, line, prompt string) string {
	out = strings.Map(func(r rune) rune {
		if r == '\b' {
			return -1
		}
		return r
	}, out)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "")

	if prompt != "" {
		out = strings.TrimSuffix(strings.TrimRight(out, " \n"), prompt)
	}
	out = strings.TrimLeft(out, " \n")
	if rest, ok := strings.CutPrefix(out, line); ok {
		out = rest
	}
	return strings.Trim(out, "\n")
}
