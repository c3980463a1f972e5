// Package proxy implements a MITM proxy that uses an engine instance to filter
// content.
package proxy

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AdguardTeam/advtblock"
	"github.com/AdguardTeam/gomitmproxy"
)

const (
	sessionPropKey    = "session"
	requestBlockedKey = "blocked"
)

// Config contains the MITM proxy configuration.
type Config struct {
	// Logger is used for logging the proxy operations.  It must not be nil.
	Logger *slog.Logger

	// Registry contains the filtering instance.  It must not be nil.
	Registry *advtblock.Registry

	// ProxyConfig is the configuration of the MITM proxy.  Its handlers are
	// overwritten by the server.
	ProxyConfig gomitmproxy.Config

	// Instance is the handle of the instance used for filtering.
	Instance advtblock.Handle
}

// Server is a filtering MITM proxy server.
type Server struct {
	logger   *slog.Logger
	registry *advtblock.Registry

	// proxyServer is nil for the servers which are not started by Start, for
	// example in tests.
	proxyServer *gomitmproxy.Proxy

	// createdAt is the time when the server was created.
	createdAt time.Time

	proxyConf gomitmproxy.Config
	instance  advtblock.Handle
}

// NewServer creates a new instance of the MITM server.  c must not be nil.
func NewServer(c *Config) (s *Server, err error) {
	if _, err = c.Registry.Engine(c.Instance); err != nil {
		return nil, fmt.Errorf("proxy instance: %w", err)
	}

	s = &Server{
		logger:    c.Logger,
		registry:  c.Registry,
		createdAt: time.Now(),
		proxyConf: c.ProxyConfig,
		instance:  c.Instance,
	}

	s.proxyConf.OnRequest = s.onRequest
	s.proxyConf.OnResponse = s.onResponse

	s.logger.Info(
		"initializing proxy",
		"listen_addr", s.proxyConf.ListenAddr,
		"mitm", s.proxyConf.MITMConfig != nil,
		"https", s.proxyConf.TLSConfig != nil,
		"instance", s.instance,
	)

	return s, nil
}

// Start starts the proxy server.
func (s *Server) Start() (err error) {
	s.proxyServer = gomitmproxy.NewProxy(s.proxyConf)

	return s.proxyServer.Start()
}

// Close stops the proxy server.
func (s *Server) Close() {
	if s.proxyServer != nil {
		s.proxyServer.Close()
	}
}
