// Package transport implements the shared, reference-counted server
// containers: one HTTP container per port, shared by every capability
// whose exposure binds to that port, plus a single-tenant stdio
// container. Generalizes ordinary single-owner server lifecycle
// management (start, serve, graceful shutdown) to the case where N
// handles share one ref-counted listener.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
)

// TLSOptions mirrors internal/capability.TLSConfig without importing it,
// keeping transport free of a capability dependency (the dependency runs
// the other way: capability's Exposure names a transport, not vice versa).
type TLSOptions struct {
	Enabled            bool
	KeystorePath       string
	TruststorePath     string
	CipherIncludeList  []string
	CipherExcludeList  []string
	RequireClientAuth  bool
}

// Container is one HTTP listener shared by every ServerHandle attached to
// it. Refcount and started are both atomic so attach/start/stop never race
//.
type Container struct {
	name         string
	host         string
	port         int
	tlsOpts      TLSOptions
	idleTimeout  time.Duration

	refcount atomic.Int32
	started  atomic.Bool

	mu       sync.Mutex
	mux      *http.ServeMux
	server   *http.Server
	listener net.Listener
}

// NewContainer builds a Container for host:port. It does not start
// listening until Start is called by the first attached handle.
func NewContainer(name, host string, port int, tlsOpts TLSOptions, idleTimeout time.Duration) *Container {
	if host == "" {
		host = "0.0.0.0"
	}
	return &Container{
		name:        name,
		host:        host,
		port:        port,
		tlsOpts:     tlsOpts,
		idleTimeout: idleTimeout,
		mux:         http.NewServeMux(),
	}
}

func (c *Container) Name() string { return c.name }

// Attach increments the reference count and returns the new count.
func (c *Container) Attach() int32 {
	return c.refcount.Add(1)
}

// Register mounts handler at path. If the container is already started,
// the mount takes effect immediately (a "hot mount"); mux.Handle panics on
// a duplicate pattern, which Register recovers into a descriptive error so
// the failing handle's registration fails without taking the container
// down.
func (c *Container) Register(path string, handler http.Handler) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport: failed to mount %q: %v", path, r)
		}
	}()
	c.mux.Handle(path, handler)
	return nil
}

// Start is guarded by an atomic compare-and-set: the first caller across
// every attached handle actually starts the listener, every subsequent
// call is a no-op success.
func (c *Container) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}

	listener, err := c.acquireListener()
	if err != nil {
		c.started.Store(false)
		return fmt.Errorf("transport: failed to listen on %s:%d: %w", c.host, c.port, err)
	}

	c.mu.Lock()
	c.listener = listener
	c.server = &http.Server{
		Handler:     c.mux,
		IdleTimeout: c.idleTimeout,
	}
	if c.tlsOpts.Enabled {
		tlsConfig, err := c.buildTLSConfig()
		if err != nil {
			c.mu.Unlock()
			c.started.Store(false)
			return err
		}
		c.server.TLSConfig = tlsConfig
		listener = tls.NewListener(listener, tlsConfig)
		c.listener = listener
	}
	server := c.server
	c.mu.Unlock()

	go func() {
		_ = server.Serve(listener)
	}()
	return nil
}

// acquireListener prefers a systemd socket-activated listener named after
// this container (so a unit file can pre-bind privileged ports) and falls
// back to net.Listen.
func (c *Container) acquireListener() (net.Listener, error) {
	named, err := activation.ListenersWithNames()
	if err == nil {
		if ls, ok := named[c.name]; ok && len(ls) > 0 {
			return ls[0], nil
		}
	}
	return net.Listen("tcp", fmt.Sprintf("%s:%d", c.host, c.port))
}

// buildTLSConfig translates TLSOptions into a *tls.Config: KeystorePath
// names a PEM file holding both the server certificate and its private key
// (the two block types coexist fine in one file since X509KeyPair scans
// for CERTIFICATE and PRIVATE KEY blocks independently), TruststorePath
// names a PEM bundle of CA certificates trusted for verifying client
// certificates, and CipherIncludeList/CipherExcludeList narrow the
// negotiable cipher suite set by name.
func (c *Container) buildTLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.tlsOpts.KeystorePath != "" {
		pem, err := os.ReadFile(c.tlsOpts.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("transport: failed to read keystore %s: %w", c.tlsOpts.KeystorePath, err)
		}
		cert, err := tls.X509KeyPair(pem, pem)
		if err != nil {
			return nil, fmt.Errorf("transport: failed to parse keystore %s: %w", c.tlsOpts.KeystorePath, err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if c.tlsOpts.TruststorePath != "" {
		pem, err := os.ReadFile(c.tlsOpts.TruststorePath)
		if err != nil {
			return nil, fmt.Errorf("transport: failed to read truststore %s: %w", c.tlsOpts.TruststorePath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: truststore %s contains no usable certificates", c.tlsOpts.TruststorePath)
		}
		cfg.ClientCAs = pool
		if !c.tlsOpts.RequireClientAuth {
			cfg.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}

	if c.tlsOpts.RequireClientAuth {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	suites, err := resolveCipherSuites(c.tlsOpts.CipherIncludeList, c.tlsOpts.CipherExcludeList)
	if err != nil {
		return nil, err
	}
	cfg.CipherSuites = suites

	return cfg, nil
}

// resolveCipherSuites maps include/exclude cipher suite names onto the IDs
// tls.Config.CipherSuites expects. An empty include list starts from every
// suite Go's tls package knows; exclude is then subtracted from that set.
// A nil result leaves tls.Config.CipherSuites unset, deferring to Go's
// default suite list and ordering.
func resolveCipherSuites(include, exclude []string) ([]uint16, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}

	byName := make(map[string]uint16)
	var all []string
	for _, s := range tls.CipherSuites() {
		byName[s.Name] = s.ID
		all = append(all, s.Name)
	}

	names := include
	if len(names) == 0 {
		names = all
	}

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	var ids []uint16
	for _, name := range names {
		if excluded[name] {
			continue
		}
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("transport: unknown cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Stop decrements the reference count; when it reaches zero and the
// container is started, the listener is stopped and started flips back to
// false so a later Start can rebind.
func (c *Container) Stop(ctx context.Context) error {
	remaining := c.refcount.Add(-1)
	if remaining > 0 {
		return nil
	}
	if !c.started.CompareAndSwap(true, false) {
		return nil
	}

	c.mu.Lock()
	server := c.server
	c.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// IsRunning reports whether the container currently has an active
// listener backing at least one attached handle.
func (c *Container) IsRunning() bool {
	return c.started.Load() && c.refcount.Load() > 0
}
