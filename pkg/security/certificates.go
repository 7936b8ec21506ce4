/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package security

import (
	"bytes"
	cryptorand "crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	mathrand "math/rand"
	"net"
	"time"
)

const (
	caKeyLength           = 4096
	keyLength             = 2048
	defaultExpirationDays = 7
)

// ServerCertificateData holds the self-signed certificate material securing one
// loopback RPC server instance. Certificates are raw DER, not PEM-encoded.
type ServerCertificateData struct {
	CACertificate []byte          // Self-signed CA certificate
	ServerCert    []byte          // Server certificate
	ServerKey     *rsa.PrivateKey // Server private key
}

// Certificate returns PEM-encoded server and certificate authority certificates.
func (scd ServerCertificateData) Certificate() ([]byte, error) {
	return PEMEncodeCertificates(scd.ServerCert, scd.CACertificate)
}

// ServerPrivateKey returns the PEM-encoded server private key.
func (scd ServerCertificateData) ServerPrivateKey() ([]byte, error) {
	return PEMEncodePrivateKey(scd.ServerKey)
}

// CA returns the PEM-encoded CA certificate.
func (scd ServerCertificateData) CA() ([]byte, error) {
	return PEMEncodeCertificates(scd.CACertificate)
}

// TLSConfig builds a server-side TLS configuration from the certificate data.
func (scd ServerCertificateData) TLSConfig() (*tls.Config, error) {
	certPEM, certErr := scd.Certificate()
	if certErr != nil {
		return nil, certErr
	}

	keyPEM, keyErr := scd.ServerPrivateKey()
	if keyErr != nil {
		return nil, keyErr
	}

	cert, pairErr := tls.X509KeyPair(certPEM, keyPEM)
	if pairErr != nil {
		return nil, fmt.Errorf("failed to assemble server key pair: %w", pairErr)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientTLSConfig builds a client-side TLS configuration that trusts the
// server's CA certificate and nothing else.
func (scd ServerCertificateData) ClientTLSConfig() (*tls.Config, error) {
	caPEM, caErr := scd.CA()
	if caErr != nil {
		return nil, caErr
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to add CA certificate to pool")
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// GenerateServerCertificate generates a self-signed certificate authority, server
// certificate, and a server private key for securing loopback connections.
// Returned certificates are raw (not PEM-encoded).
func GenerateServerCertificate(ip net.IP) (ServerCertificateData, error) {
	// Generate keys for the CA certificate
	caKey, caKeyErr := rsa.GenerateKey(cryptorand.Reader, caKeyLength)
	if caKeyErr != nil {
		return ServerCertificateData{}, fmt.Errorf("failed to generate CA key: %w", caKeyErr)
	}

	// Generate keys for the server certificate
	serverKey, serverKeyErr := rsa.GenerateKey(cryptorand.Reader, keyLength)
	if serverKeyErr != nil {
		return ServerCertificateData{}, fmt.Errorf("failed to generate server key: %w", serverKeyErr)
	}

	// Template for the CA certificate
	ca := &x509.Certificate{
		SerialNumber: big.NewInt(mathrand.Int63()),
		Subject: pkix.Name{
			CommonName: ip.String(),
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(0, 0, defaultExpirationDays),
		IsCA:                  true,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	caBytes, caErr := x509.CreateCertificate(cryptorand.Reader, ca, ca, &caKey.PublicKey, caKey)
	if caErr != nil {
		return ServerCertificateData{}, fmt.Errorf("failed to create CA certificate: %w", caErr)
	}

	// Generate the subject ID for the server certificate as a SHA256 hash of the server public key
	serverPublicKeyBytes, serverPublicKeyBytesErr := asn1.Marshal(*serverKey.Public().(*rsa.PublicKey))
	if serverPublicKeyBytesErr != nil {
		return ServerCertificateData{}, fmt.Errorf("failed to marshal server public key: %w", serverPublicKeyBytesErr)
	}
	serverPublicKeySubjectId := sha256.Sum256(serverPublicKeyBytes)

	// Template for the server certificate
	server := &x509.Certificate{
		SerialNumber: big.NewInt(mathrand.Int63()),
		Subject:      pkix.Name{},
		IPAddresses:  []net.IP{ip},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().AddDate(0, 0, defaultExpirationDays),
		SubjectKeyId: serverPublicKeySubjectId[:],
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	serverBytes, serverErr := x509.CreateCertificate(cryptorand.Reader, server, ca, &serverKey.PublicKey, caKey)
	if serverErr != nil {
		return ServerCertificateData{}, fmt.Errorf("failed to create server certificate: %w", serverErr)
	}

	return ServerCertificateData{
		CACertificate: caBytes,
		ServerCert:    serverBytes,
		ServerKey:     serverKey,
	}, nil
}

// PEMEncodeCertificates PEM-encodes a set of certificates into a common buffer.
func PEMEncodeCertificates(certs ...[]byte) ([]byte, error) {
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates provided for PEM encoding")
	}

	var buffer bytes.Buffer

	for _, cert := range certs {
		pemBlock := &pem.Block{
			Type:  "CERTIFICATE",
			Bytes: cert,
		}
		if err := pem.Encode(&buffer, pemBlock); err != nil {
			return nil, fmt.Errorf("failed to PEM encode certificate: %w", err)
		}
	}

	return buffer.Bytes(), nil
}

// PEMEncodePrivateKey PEM-encodes a private key.
func PEMEncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is nil")
	}

	var buffer bytes.Buffer

	pemBlock := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	if err := pem.Encode(&buffer, pemBlock); err != nil {
		return nil, fmt.Errorf("failed to PEM encode private key: %w", err)
	}

	return buffer.Bytes(), nil
}
