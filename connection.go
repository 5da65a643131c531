// Connection management: one keep-alive socket per (scheme, host, port)
// origin, reused across requests and closed in bulk at shutdown.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
)

// connKey identifies the origin a connection belongs to.
type connKey struct {
	scheme string
	host   string
	port   int
}

// Connection is a live socket to one origin. Reads must go through br so
// buffered lookahead is never lost between requests.
type Connection struct {
	key    connKey
	nc     net.Conn
	br     *bufio.Reader
	reused bool // handed out from the cache at least once
}

// Manager caches at most one Connection per origin. Methods are safe for
// concurrent use.
type Manager struct {
	mu    sync.Mutex
	conns map[connKey]*Connection

	// dialContext makes the TCP connection. Assignable so tests can
	// observe or redirect dials.
	dialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// insecure skips TLS certificate verification.
	insecure bool
}

// NewManager returns a Manager whose dials give up after dialTimeout.
func NewManager(dialTimeout time.Duration, insecure bool) *Manager {
	d := &net.Dialer{Timeout: dialTimeout}
	return &Manager{
		conns:       make(map[connKey]*Connection),
		dialContext: d.DialContext,
		insecure:    insecure,
	}
}

// Get returns the cached connection for u's origin, or dials a fresh one
// and caches it. Dial and handshake failures are reported as ErrConnect.
func (m *Manager) Get(ctx context.Context, u *URL) (*Connection, error) {
	key := connKey{u.Scheme, u.Host, u.Port}

	m.mu.Lock()
	if c, ok := m.conns[key]; ok {
		c.reused = true
		m.mu.Unlock()
		return c, nil
	}
	m.mu.Unlock()

	nc, err := m.dialContext(ctx, "tcp", u.hostPort())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if u.Scheme == "https" {
		tc, err := m.handshake(ctx, nc, u.Host)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("%w: TLS handshake with %s: %v", ErrConnect, u.Host, err)
		}
		nc = tc
	}

	c := &Connection{key: key, nc: nc, br: bufio.NewReader(nc)}
	m.mu.Lock()
	// Keep at most one connection per origin even if two dials raced.
	if old, ok := m.conns[key]; ok {
		old.nc.Close()
	}
	m.conns[key] = c
	m.mu.Unlock()
	return c, nil
}

// handshake wraps a TCP connection in TLS with a Firefox ClientHello.
// ALPN is pinned to http/1.1: this client cannot parse anything newer,
// so the server is never offered the choice.
func (m *Manager) handshake(ctx context.Context, nc net.Conn, host string) (net.Conn, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloFirefox_120)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	cfg := &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: m.insecure,
	}
	tc := utls.UClient(nc, cfg, utls.HelloCustom)
	if err := tc.ApplyPreset(&spec); err != nil {
		return nil, err
	}
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}

// Discard closes c and drops it from the cache. Safe to call for a
// connection the cache no longer holds.
func (m *Manager) Discard(c *Connection) {
	if c == nil {
		return
	}
	c.nc.Close()
	m.mu.Lock()
	if m.conns[c.key] == c {
		delete(m.conns, c.key)
	}
	m.mu.Unlock()
}

// CloseAll closes every cached connection. Called once at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.conns {
		c.nc.Close()
		delete(m.conns, key)
	}
}
