// Package tlsconf builds the client TLS configuration used for ssl:// MQTT
// brokers.
//
// The system root pool is trusted by default. A PEM file of extra CA
// certificates can be added for private brokers with self-signed chains.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Client returns a *tls.Config for connecting to serverName. caFile may be
// empty; when set, its certificates are added to the system pool.
func Client(serverName, caFile string) (*tls.Config, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("tlsconf: read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("tlsconf: no certificates found in " + caFile)
		}
	}
	return &tls.Config{
		ServerName: serverName,
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
