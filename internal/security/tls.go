package security

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoFixtureDir is returned by ClientTLS when encryption is on but the
// profile carries no fixture directory.
var ErrNoFixtureDir = errors.New("security fixture directory not set")

// serverName is the name the generated server certificate is issued for.
const serverName = "localhost"

// ClientTLS returns the client side TLS configuration for p, or nil when
// encryption is off. The server is verified against the fixture CA; with
// mutual authentication the client key pair is presented as well.
func ClientTLS(p Profile) (*tls.Config, error) {
	if !p.Encryption {
		return nil, nil //nolint:nilnil // nil config means plaintext
	}
	if p.FixtureDir == "" {
		return nil, ErrNoFixtureDir
	}

	caPEM, err := os.ReadFile(filepath.Join(p.FixtureDir, CACertFile))
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates in %s", CACertFile)
	}

	cfg := &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
	if p.MutualAuth {
		pair, err := tls.LoadX509KeyPair(
			filepath.Join(p.FixtureDir, ClientCertFile),
			filepath.Join(p.FixtureDir, ClientKeyFile),
		)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}
