// Package telnet maintains the login session with a DX cluster telnet
// service and relays lines in both directions.
package telnet

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rsclarke/dxrelay/internal/dx"
	"github.com/rsclarke/dxrelay/internal/logging"
	"github.com/rsclarke/dxrelay/internal/metrics"
	"github.com/rsclarke/dxrelay/internal/queue"
)

// Fatal errors returned by Manager.Run. Connection failures are retried
// internally and never returned.
var (
	ErrLogin          = errors.New("telnet: login rejected")
	ErrOutboundClosed = errors.New("telnet: outbound queue closed")
	ErrSinkClosed     = errors.New("telnet: spot queue receiver gone")
)

const loginPrompt = "login:"

// Resolver resolves a host name to addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config identifies the cluster and the login to use.
type Config struct {
	Host     string // host:port
	Username string
}

// Options carries the collaborators of a Manager. Zero values select the
// system resolver, a plain TCP dialer and JitteredDelay.
type Options struct {
	Logger   *zap.Logger
	Resolver Resolver
	Dialer   Dialer
	Metrics  *metrics.Collector

	// Delay picks the reconnect delay once per connect cycle.
	Delay func() time.Duration
	// Sleep waits out a reconnect delay.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnState is called on every state transition.
	OnState func(State)
}

// Manager owns a single cluster session. Relevant inbound lines are pushed
// to spots; lines received from outbound are written to the cluster.
type Manager struct {
	cfg      Config
	opts     Options
	logger   *zap.Logger
	spots    *queue.Queue[string]
	outbound *queue.Queue[string]
	state    atomic.Int32
}

// NewManager creates a Manager. Run starts it.
func NewManager(cfg Config, spots, outbound *queue.Queue[string], opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	if opts.Dialer == nil {
		opts.Dialer = &net.Dialer{}
	}
	if opts.Delay == nil {
		opts.Delay = JitteredDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	return &Manager{
		cfg:      cfg,
		opts:     opts,
		logger:   opts.Logger.With(logging.Host(cfg.Host)),
		spots:    spots,
		outbound: outbound,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	m.opts.Metrics.SetState(int(s))
	if m.opts.OnState != nil {
		m.opts.OnState(s)
	}
}

// Run keeps the session alive until a fatal condition or ctx is done.
// It returns ErrLogin, ErrOutboundClosed, ErrSinkClosed (wrapped) or the
// context error. It never returns nil.
func (m *Manager) Run(ctx context.Context) error {
	defer m.setState(Disconnected)

	for {
		// One delay per cycle, used for both connect failure and session loss.
		delay := m.opts.Delay()

		m.setState(Connecting)
		conn, err := m.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.opts.Metrics.Connect("failed")
			m.setState(Disconnected)
			m.logger.Error("telnet connection failed, will retry", zap.Error(err), logging.Delay(delay))
			if err := m.opts.Sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		m.setState(Authenticating)
		r := bufio.NewReader(conn)
		if err := m.login(r, conn); err != nil {
			_ = conn.Close()
			m.opts.Metrics.Connect("rejected")
			m.logger.Error("telnet login failed", zap.Error(err))
			return err
		}
		m.opts.Metrics.Connect("ok")

		m.setState(Active)
		m.logger.Info("telnet session active", logging.Username(m.cfg.Username))
		err = m.relay(ctx, conn, r)
		_ = conn.Close()
		m.setState(Disconnected)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.logger.Error("lost telnet connection, will reconnect", logging.Delay(delay))
		if err := m.opts.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// connect resolves the host and tries each address in order.
func (m *Manager) connect(ctx context.Context) (net.Conn, error) {
	host, port, err := net.SplitHostPort(m.cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("parse host %q: %w", m.cfg.Host, err)
	}

	addrs, err := m.opts.Resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	var errs []error
	for _, a := range addrs {
		addr := net.JoinHostPort(a, port)
		conn, err := m.opts.Dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			m.logger.Debug("connect attempt failed, trying next address", logging.Addr(addr), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			if err := tc.SetNoDelay(true); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("set nodelay on %s: %w", addr, err)
			}
		}
		m.logger.Debug("connected", logging.Addr(addr))
		return conn, nil
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}
	return nil, fmt.Errorf("could not connect to %s: %w", m.cfg.Host, errors.Join(errs...))
}

// login waits for the server's first space-terminated token and answers a
// "login:" prompt with the username. Anything else is fatal.
func (m *Manager) login(r *bufio.Reader, w io.Writer) error {
	buf, err := r.ReadBytes(' ')
	if err != nil && !(errors.Is(err, io.EOF) && len(buf) > 0) {
		return fmt.Errorf("%w: read prompt: %w", ErrLogin, err)
	}

	if !utf8.Valid(buf) || !bytes.HasPrefix(buf, []byte(loginPrompt)) {
		m.logger.Error("unexpected data from cluster", logging.Line(strings.ToValidUTF8(string(buf), "�")))
		return fmt.Errorf("%w: unexpected prompt %q", ErrLogin, buf)
	}

	if _, err := io.WriteString(w, m.cfg.Username+"\n"); err != nil {
		return fmt.Errorf("%w: send username: %w", ErrLogin, err)
	}
	return nil
}

type readResult struct {
	line string
	err  error
}

// relay multiplexes inbound lines and outbound messages until the
// connection breaks (nil) or a queue becomes unusable (fatal error).
func (m *Manager) relay(ctx context.Context, conn net.Conn, r *bufio.Reader) error {
	lines := make(chan readResult)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				select {
				case lines <- readResult{line: line}:
				case <-stop:
					return
				}
			}
			if err != nil {
				select {
				case lines <- readResult{err: err}:
				case <-stop:
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case res := <-lines:
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					m.logger.Error("no more lines from cluster, connection closed")
				} else {
					m.logger.Error("read from cluster failed", zap.Error(res.err))
				}
				return nil
			}
			if err := m.handleLine(res.line); err != nil {
				return err
			}

		case msg, ok := <-m.outbound.Out():
			if !ok {
				m.logger.Error("outbound queue closed, closing telnet session")
				return ErrOutboundClosed
			}
			m.logger.Debug("telnet tx", logging.Line(msg))
			if _, err := io.WriteString(conn, msg+"\n"); err != nil {
				m.logger.Error("write to cluster failed", zap.Error(err))
				return nil
			}
			m.opts.Metrics.LineSent()
		}
	}
}

func (m *Manager) handleLine(raw string) error {
	m.opts.Metrics.LineRead()

	if !utf8.ValidString(raw) {
		m.opts.Metrics.LineInvalid()
		m.logger.Warn("invalid line from cluster", logging.Line(strings.ToValidUTF8(raw, "�")))
		return nil
	}

	line := TrimLine(raw)
	m.logger.Debug("telnet rx", logging.Line(line))

	if !dx.IsRelevant(line) {
		return nil
	}
	if err := m.spots.Push(line); err != nil {
		m.logger.Error("spot queue closed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSinkClosed, err)
	}
	m.opts.Metrics.LineForwarded()
	return nil
}

// TrimLine strips the line terminator, trailing whitespace and trailing
// bell characters from a raw cluster line.
func TrimLine(raw string) string {
	line := strings.TrimRightFunc(raw, unicode.IsSpace)
	return strings.TrimRight(line, "\a")
}
