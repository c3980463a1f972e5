package main

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdguardTeam/advtblock/metrics"
	"github.com/AdguardTeam/advtblock/proxy"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/mitm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// metricsNamespace is the namespace of the Prometheus metrics.
	metricsNamespace = "advtblock"

	// certValidity is the validity period of the generated certificates.
	certValidity = 7 * 24 * time.Hour

	// certOrganization is the organization of the generated certificates.
	certOrganization = "AdvtBlock"

	// readHeaderTimeout is the header read timeout of the metrics server.
	readHeaderTimeout = 10 * time.Second
)

// errNoProxyConfig is returned when the proxy section of the configuration is
// missing.
const errNoProxyConfig errors.Error = "no proxy section in the configuration file"

// proxyCommand is the command that runs the filtering proxy.
type proxyCommand struct {
	env *environment
}

// Execute implements the [goFlags.Commander] interface for *proxyCommand.
func (c *proxyCommand) Execute(_ []string) (err error) {
	err = c.env.setup()
	if err != nil {
		return err
	}

	conf := c.env.conf.Proxy
	if conf == nil {
		return errNoProxyConfig
	}

	promReg := prometheus.NewRegistry()
	m, err := newMetrics(promReg)
	if err != nil {
		return err
	}

	reg, h, err := c.env.newInstance(m)
	if err != nil {
		return err
	}
	defer reg.Close()

	proxyConf, err := newProxyConfig(conf)
	if err != nil {
		return err
	}

	srv, err := proxy.NewServer(&proxy.Config{
		Logger:      c.env.logger.With("service", "proxy"),
		Registry:    reg,
		ProxyConfig: proxyConf,
		Instance:    h,
	})
	if err != nil {
		return err
	}

	err = srv.Start()
	if err != nil {
		return fmt.Errorf("starting proxy: %w", err)
	}
	defer srv.Close()

	if addr := c.env.conf.MetricsAddr; addr != "" {
		metricsSrv := c.startMetricsServer(addr, promReg)
		defer func() { c.env.logError("closing metrics server", metricsSrv.Close()) }()
	}

	c.env.logger.Info("proxy started", "listen_addr", conf.ListenAddr)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signalChan

	c.env.logger.Info("shutting down", "signal", sig)

	return nil
}

// newMetrics registers the metrics in promReg.
func newMetrics(promReg *prometheus.Registry) (m *metrics.Prometheus, err error) {
	err = promReg.Register(collectors.NewGoCollector())
	if err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}

	err = promReg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}

	return metrics.NewPrometheus(metricsNamespace, promReg)
}

// startMetricsServer starts serving the metrics of promReg on addr.
func (c *proxyCommand) startMetricsServer(addr string, promReg *prometheus.Registry) (srv *http.Server) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			c.env.logError("serving metrics", err)
		}
	}()

	c.env.logger.Info("serving metrics", "addr", addr)

	return srv
}

// newProxyConfig returns the MITM proxy configuration for conf.
func newProxyConfig(conf *proxyConfig) (c gomitmproxy.Config, err error) {
	mitmConf, err := newMITMConfig(conf.CACertPath, conf.CAKeyPath)
	if err != nil {
		return gomitmproxy.Config{}, err
	}

	var tlsConf *tls.Config
	if conf.HTTPSHostname != "" {
		var cert *tls.Certificate
		cert, err = mitmConf.GetOrCreateCert(conf.HTTPSHostname)
		if err != nil {
			return gomitmproxy.Config{}, fmt.Errorf("creating certificate for %s: %w", conf.HTTPSHostname, err)
		}

		tlsConf = &tls.Config{
			Certificates: []tls.Certificate{*cert},
			ServerName:   conf.HTTPSHostname,
			MinVersion:   tls.VersionTLS12,
		}
	}

	// The address is validated when the configuration is read.
	addrPort := netip.MustParseAddrPort(conf.ListenAddr)

	return gomitmproxy.Config{
		ListenAddr:     net.TCPAddrFromAddrPort(addrPort),
		TLSConfig:      tlsConf,
		Username:       conf.Username,
		Password:       conf.Password,
		MITMConfig:     mitmConf,
		MITMExceptions: conf.MITMExceptions,
	}, nil
}

// newMITMConfig loads the CA certificate and key and returns the MITM
// configuration that issues the certificates with them.
func newMITMConfig(certPath, keyPath string) (c *mitm.Config, err error) {
	tlsCert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading root ca: %w", err)
	}

	privateKey, ok := tlsCert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("root ca key: want rsa, got %T", tlsCert.PrivateKey)
	}

	x509c, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parsing root ca: %w", err)
	}

	c, err = mitm.NewConfig(x509c, privateKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating mitm config: %w", err)
	}

	c.SetValidity(certValidity)
	c.SetOrganization(certOrganization)

	return c, nil
}
