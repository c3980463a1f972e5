package main

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"gopkg.in/yaml.v3"
)

// configuration is the structure of the YAML configuration file.
type configuration struct {
	// Proxy is the configuration of the proxy command.  It is nil if the
	// file has no proxy section.
	Proxy *proxyConfig `yaml:"proxy"`

	// MetricsAddr is the address to serve the Prometheus metrics on.  If
	// empty, the metrics are not served.
	MetricsAddr string `yaml:"metrics_addr"`

	// Filters are the paths to the filter lists.
	Filters []string `yaml:"filters"`

	// ImportantExceptionWinsTies is passed to the engine, see
	// [advtblock.Config].
	ImportantExceptionWinsTies bool `yaml:"important_exception_wins_ties"`

	// Verbose defines whether the debug-level log should be written.
	Verbose bool `yaml:"verbose"`
}

// proxyConfig is the proxy section of the configuration file.
type proxyConfig struct {
	// ListenAddr is the address the proxy listens on.
	ListenAddr string `yaml:"listen_addr"`

	// CACertPath is the path to the file with the root certificate.
	CACertPath string `yaml:"ca_cert"`

	// CAKeyPath is the path to the file with the CA private key.
	CAKeyPath string `yaml:"ca_key"`

	// Username is the proxy auth username.  If set, proxy authorization is
	// required.
	Username string `yaml:"username"`

	// Password is the proxy auth password.
	Password string `yaml:"password"`

	// HTTPSHostname is the server name of the HTTPS proxy.  If set, the proxy
	// is run as an HTTPS one.
	HTTPSHostname string `yaml:"https_hostname"`

	// MITMExceptions are the hostnames which are not intercepted.
	MITMExceptions []string `yaml:"mitm_exceptions"`
}

// defaultConfiguration returns the configuration used when there is no
// configuration file.
func defaultConfiguration() (c *configuration) {
	return &configuration{}
}

// readConfig reads and validates the configuration file.
func readConfig(path string) (c *configuration, err error) {
	// #nosec G304 -- The path is provided by the user.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	c = defaultConfiguration()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(c)
	if err != nil {
		return nil, fmt.Errorf("decoding config %q: %w", path, err)
	}

	err = c.validate()
	if err != nil {
		return nil, fmt.Errorf("validating config %q: %w", path, err)
	}

	return c, nil
}

// validate returns an error if c contains invalid values.
func (c *configuration) validate() (err error) {
	var errs []error
	if c.MetricsAddr != "" {
		_, addrErr := netip.ParseAddrPort(c.MetricsAddr)
		if addrErr != nil {
			errs = append(errs, fmt.Errorf("metrics_addr: %w", addrErr))
		}
	}

	for i, p := range c.Filters {
		if p == "" {
			errs = append(errs, fmt.Errorf("filters: at index %d: empty path", i))
		}
	}

	if c.Proxy != nil {
		err = c.Proxy.validate()
		if err != nil {
			errs = append(errs, fmt.Errorf("proxy: %w", err))
		}
	}

	return errors.Join(errs...)
}

// validate returns an error if c contains invalid values.
func (c *proxyConfig) validate() (err error) {
	var errs []error
	_, addrErr := netip.ParseAddrPort(c.ListenAddr)
	if addrErr != nil {
		errs = append(errs, fmt.Errorf("listen_addr: %w", addrErr))
	}

	if c.CACertPath == "" {
		errs = append(errs, errors.Error("ca_cert: empty path"))
	}

	if c.CAKeyPath == "" {
		errs = append(errs, errors.Error("ca_key: empty path"))
	}

	if (c.Username == "") != (c.Password == "") {
		errs = append(errs, errors.Error("username and password must be set together"))
	}

	return errors.Join(errs...)
}
