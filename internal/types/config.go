package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
)

// Configuration is the credential/endpoint pair every query runs against.
// Secret is never empty once a query may run: an unset secret is replaced by
// EmptySecret, which the server rejects with a regular authentication error.
type Configuration struct {
	Secret   string `json:"secret" yaml:"secret"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

const (
	// EmptySecret stands in for an unset secret. The server fails it cleanly.
	EmptySecret = "0"
	// DefaultEndpoint is the local development endpoint.
	DefaultEndpoint = "http://localhost:8443"

	SettingsSection = "fauna"
	SecretField     = "dbSecret"
	EndpointField   = "endpoint"

	// SecretKey and EndpointKey are the two watched settings keys.
	SecretKey   = SettingsSection + "." + SecretField
	EndpointKey = SettingsSection + "." + EndpointField

	MissingSecretMessage = "You must configure a database secret for the Fauna extension."
)

// WatchedKeys lists the settings keys the configuration store reacts to.
var WatchedKeys = []string{SecretKey, EndpointKey}

// EndpointURL parses Endpoint, which must be an absolute URL.
func (c Configuration) EndpointURL() (*url.URL, error) {
	return ParseEndpoint(c.Endpoint)
}

func (c Configuration) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if _, err := c.EndpointURL(); err != nil {
		return err
	}
	return nil
}

// ParseEndpoint parses s and rejects relative or host-less URLs.
func ParseEndpoint(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", s)
	}
	return u, nil
}

// Fingerprint identifies a secret without revealing it: the first 8 bytes of
// its SHA-256, hex encoded.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
