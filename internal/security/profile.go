package security

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

// Recognized test metadata tags.
const (
	// TagTransportEncryption turns on TLS between clients and brokers.
	TagTransportEncryption = "transport-encryption"
	// TagAuthentication turns on mutual TLS authentication.
	TagAuthentication = "authentication"
)

// Paths of the key material inside every node. The host FixtureDir is
// mounted at NodeFixtureDir.
const (
	NodeFixtureDir = "/data/security"
	NodeKeyPath    = NodeFixtureDir + "/" + ServerKeyFile
	NodeCertPath   = NodeFixtureDir + "/" + ServerCertFile
	NodeCAPath     = NodeFixtureDir + "/" + CACertFile
)

// File names inside a fixture directory.
const (
	CACertFile     = "ca.cert.pem"
	CAKeyFile      = "ca.key.pem"
	ServerKeyFile  = "server.key.pem"
	ServerCertFile = "signed.server.cert.pem"
	ClientKeyFile  = "client.key.pem"
	ClientCertFile = "signed.client.cert.pem"
)

// Profile is the resolved security configuration of one session. It is a
// value type and is never modified after Resolve returns it.
type Profile struct {
	Encryption bool
	MutualAuth bool

	// In-node paths; empty when the corresponding feature is off.
	KeyPath  string
	CertPath string
	CAPath   string

	// FixtureDir is the host directory holding the key material. It is
	// mounted into nodes and read by the client. Empty when security is off,
	// so plaintext sessions mount nothing.
	FixtureDir string
}

// Resolve maps test tags to a Profile. Unrecognized tags are ignored and no
// tags yield the zero Profile. Mutual authentication implies encryption.
func Resolve(tags []string, fixtureDir string) Profile {
	set := sets.New(tags...)
	var p Profile

	if set.HasAny(TagTransportEncryption, TagAuthentication) {
		p.Encryption = true
		p.KeyPath = NodeKeyPath
		p.CertPath = NodeCertPath
	}
	if set.Has(TagAuthentication) {
		p.MutualAuth = true
		p.CAPath = NodeCAPath
	}
	if p.Enabled() {
		p.FixtureDir = fixtureDir
	}
	return p
}

// Enabled reports whether any transport security is configured.
func (p Profile) Enabled() bool {
	return p.Encryption || p.MutualAuth
}
