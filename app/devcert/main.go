package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"flag"
	"log"
	"math/big"
	"net"
	"os"
	"strings"
	"time"
)

// devcert writes a self-signed P-256 certificate for local HTTPS. Point
// TLS_CERT_FILE and TLS_KEY_FILE at the output.
func main() {
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated DNS names and IPs")
	certPath := flag.String("cert", "server.crt", "certificate output path")
	keyPath := flag.String("key", "server.key", "private key output path")
	years := flag.Int("years", 1, "validity in years")
	flag.Parse()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal(err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		log.Fatal(err)
	}

	names := strings.Split(*hosts, ",")
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Site Entry Dev"},
			CommonName:   strings.TrimSpace(names[0]),
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(*years, 0, 0),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range names {
		h = strings.TrimSpace(h)
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		log.Fatal(err)
	}
	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		log.Fatal(err)
	}

	if err := writePEM(*certPath, "CERTIFICATE", derBytes, 0o644); err != nil {
		log.Fatal(err)
	}
	if err := writePEM(*keyPath, "EC PRIVATE KEY", keyBytes, 0o600); err != nil {
		log.Fatal(err)
	}
	log.Printf("✅ wrote %s and %s for %s", *certPath, *keyPath, *hosts)
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
