package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
)

// fixtureValidity is how long generated certificates stay valid.
const fixtureValidity = 7 * 24 * time.Hour

// renewBefore is how close to expiry a certificate may get before the whole
// set is regenerated. It must cover the longest test run that uses the set.
const renewBefore = 24 * time.Hour

// fixtureFiles lists every file EnsureFixtures produces.
var fixtureFiles = []string{
	CACertFile, CAKeyFile,
	ServerCertFile, ServerKeyFile,
	ClientCertFile, ClientKeyFile,
}

// fixtureMu serializes EnsureFixtures within the process; the lock file
// next to the directory does the same across processes.
var fixtureMu sync.Mutex

// EnsureFixtures makes sure dir holds a CA, a server key pair signed by it
// and a client key pair signed by it, all valid for at least renewBefore.
// A usable set is left alone, so checked-in fixtures take precedence until
// they near expiry. Otherwise the complete set is regenerated, since a lone
// new leaf would not chain to an old CA.
//
// Keys are ECDSA P-256; generation takes well under a millisecond.
func EnsureFixtures(dir string) error {
	if dir == "" {
		return ErrNoFixtureDir
	}
	dir = filepath.Clean(dir)

	fixtureMu.Lock()
	defer fixtureMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("create fixture parent dir: %w", err)
	}
	fl := flock.New(dir + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("lock fixture dir: %w", err)
	}
	defer fl.Close()

	now := time.Now()
	if usable, err := fixturesUsable(dir, now); err != nil {
		return err
	} else if usable {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fixture dir: %w", err)
	}

	ca, caKey, err := newCA(now)
	if err != nil {
		return err
	}
	if err := writePair(dir, CACertFile, CAKeyFile, ca.Raw, caKey); err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		return issueLeaf(dir, ServerCertFile, ServerKeyFile, ca, caKey, x509.ExtKeyUsageServerAuth, now)
	})
	g.Go(func() error {
		return issueLeaf(dir, ClientCertFile, ClientKeyFile, ca, caKey, x509.ExtKeyUsageClientAuth, now)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("issue leaf certificates: %w", err)
	}
	return nil
}

// fixturesUsable reports whether dir holds every fixture file, no
// certificate expires within renewBefore of now and both leaves are signed
// by the CA. Unparsable certificates count as unusable, not as errors.
func fixturesUsable(dir string, now time.Time) (bool, error) {
	for _, name := range fixtureFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", name, err)
		}
	}

	certs := make(map[string]*x509.Certificate, 3)
	for _, name := range []string{CACertFile, ServerCertFile, ClientCertFile} {
		cert, err := readCert(filepath.Join(dir, name))
		if err != nil {
			return false, err
		}
		if cert == nil || !now.Add(renewBefore).Before(cert.NotAfter) {
			return false, nil
		}
		certs[name] = cert
	}

	ca := certs[CACertFile]
	for _, name := range []string{ServerCertFile, ClientCertFile} {
		if certs[name].CheckSignatureFrom(ca) != nil {
			return false, nil
		}
	}
	return true, nil
}

// readCert returns the first certificate in a PEM file, or nil when the file
// holds none.
func readCert(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is inside the fixture dir
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, nil
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil //nolint:nilerr // a corrupt certificate is replaced
	}
	return cert, nil
}

func newCA(now time.Time) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate CA key: %w", err)
	}
	serial, err := newSerial()
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "hstreamenv test CA"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(fixtureValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("parse CA certificate: %w", err)
	}
	return cert, key, nil
}

func issueLeaf(dir, certFile, keyFile string, ca *x509.Certificate, caKey *ecdsa.PrivateKey, usage x509.ExtKeyUsage, now time.Time) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key for %s: %w", certFile, err)
	}
	serial, err := newSerial()
	if err != nil {
		return err
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: serverName},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(fixtureValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{usage},
		DNSNames:     []string{serverName},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey)
	if err != nil {
		return fmt.Errorf("sign %s: %w", certFile, err)
	}
	return writePair(dir, certFile, keyFile, der, key)
}

func writePair(dir, certFile, keyFile string, certDER []byte, key *ecdsa.PrivateKey) error {
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", keyFile, err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	if err := os.WriteFile(filepath.Join(dir, certFile), certPEM, 0o644); err != nil { //nolint:gosec // certificates are public
		return fmt.Errorf("write %s: %w", certFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyFile), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyFile, err)
	}
	return nil
}

func newSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}
	return serial, nil
}
