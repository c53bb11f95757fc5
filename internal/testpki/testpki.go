// Package testpki builds throwaway certificate hierarchies and mock
// OCSP/CRL endpoints for exercising the trust linkers without a real CA.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ocsp"
)

// KeyProfile selects the key algorithm and size a TestPKI generates.
type KeyProfile string

const (
	RSA_2048   KeyProfile = "RSA_2048"
	RSA_3072   KeyProfile = "RSA_3072"
	RSA_4096   KeyProfile = "RSA_4096"
	ECDSA_P256 KeyProfile = "ECDSA_P256"
	ECDSA_P384 KeyProfile = "ECDSA_P384"
	ECDSA_P521 KeyProfile = "ECDSA_P521"
)

// TestPKIConfig configures a TestPKI hierarchy.
type TestPKIConfig struct {
	Profile         KeyProfile
	IntermediateCAs int
}

// TestPKI manages a temporary Root -> Intermediate(s) CA hierarchy plus a
// mock HTTP server answering CRL, OCSP, and caIssuers requests for leaf
// certificates it issues.
type TestPKI struct {
	T                 *testing.T
	RootKey           crypto.Signer
	RootCert          *x509.Certificate
	IntermediateKeys  []crypto.Signer
	IntermediateCerts []*x509.Certificate
	Server            *httptest.Server
	CRLBytes          []byte
	Requests          int
	OCSPRequests      int
	FailOCSP          bool
	Profile           KeyProfile

	// DelegatedResponder, when set by a test, is used to sign OCSP
	// responses instead of the issuing CA, with its certificate embedded
	// in the response.
	DelegatedResponderKey  crypto.Signer
	DelegatedResponderCert *x509.Certificate

	// RevokedSerials marks leaf serial numbers the mock CRL and OCSP
	// endpoints report as revoked.
	RevokedSerials []*big.Int
}

// NewTestPKI creates a one-intermediate ECDSA P-384 hierarchy.
func NewTestPKI(t *testing.T) *TestPKI {
	return NewTestPKIWithConfig(t, TestPKIConfig{
		Profile:         ECDSA_P384,
		IntermediateCAs: 1,
	})
}

// NewTestPKIWithConfig builds a hierarchy per config.
func NewTestPKIWithConfig(t *testing.T, config TestPKIConfig) *TestPKI {
	rootKey := GenerateKey(t, config.Profile)

	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "gotrust Test Root CA",
			Organization: []string{"gotrust Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte{1, 2, 3, 4},
	}

	rootBytes, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, rootKey.Public(), rootKey)
	if err != nil {
		Fail(t, "failed to create root cert: %v", err)
	}
	rootCert, err := x509.ParseCertificate(rootBytes)
	if err != nil {
		Fail(t, "failed to parse root cert: %v", err)
	}

	var intermediateKeys []crypto.Signer
	var intermediateCerts []*x509.Certificate

	parentKey := rootKey
	parentCert := rootCert

	for i := 0; i < config.IntermediateCAs; i++ {
		key := GenerateKey(t, config.Profile)
		template := &x509.Certificate{
			SerialNumber: big.NewInt(int64(i + 2)),
			Subject: pkix.Name{
				CommonName:   fmt.Sprintf("gotrust Test Intermediate CA %d", i+1),
				Organization: []string{"gotrust Test Org"},
			},
			NotBefore:             time.Now().Add(-1 * time.Hour),
			NotAfter:              time.Now().Add(24 * time.Hour),
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
			BasicConstraintsValid: true,
			IsCA:                  true,
			MaxPathLen:            0,
			SubjectKeyId:          []byte{5, 6, 7, 8, byte(i)},
			AuthorityKeyId:        parentCert.SubjectKeyId,
		}

		certBytes, err := x509.CreateCertificate(rand.Reader, template, parentCert, key.Public(), parentKey)
		if err != nil {
			Fail(t, "failed to create intermediate cert %d: %v", i, err)
		}
		cert, err := x509.ParseCertificate(certBytes)
		if err != nil {
			Fail(t, "failed to parse intermediate cert %d: %v", i, err)
		}

		intermediateKeys = append(intermediateKeys, key)
		intermediateCerts = append(intermediateCerts, cert)

		parentKey = key
		parentCert = cert
	}

	return &TestPKI{
		T:                 t,
		RootKey:           rootKey,
		RootCert:          rootCert,
		IntermediateKeys:  intermediateKeys,
		IntermediateCerts: intermediateCerts,
		Profile:           config.Profile,
	}
}

// IssuerCertAndKey returns the certificate/key pair leaves are issued under:
// the last intermediate, or the root if there are none.
func (p *TestPKI) IssuerCertAndKey() (*x509.Certificate, crypto.Signer) {
	if len(p.IntermediateCerts) > 0 {
		return p.IntermediateCerts[len(p.IntermediateCerts)-1], p.IntermediateKeys[len(p.IntermediateKeys)-1]
	}
	return p.RootCert, p.RootKey
}

// IssueDelegatedResponder mints an OCSP-signing certificate under the
// issuing CA, with the id-pkix-ocsp-nocheck extension, and arranges for
// StartCRLServer's mock endpoint to sign responses with it instead of the
// issuing CA directly.
func (p *TestPKI) IssueDelegatedResponder() {
	issuerCert, issuerKey := p.IssuerCertAndKey()
	key := GenerateKey(p.T, p.Profile)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(9001),
		Subject: pkix.Name{
			CommonName:   "gotrust Test OCSP Responder",
			Organization: []string{"gotrust Test Org"},
		},
		NotBefore:          time.Now().Add(-1 * time.Hour),
		NotAfter:           time.Now().Add(24 * time.Hour),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		ExtKeyUsage:        []x509.ExtKeyUsage{x509.ExtKeyUsageOCSPSigning},
		ExtraExtensions: []pkix.Extension{
			{Id: asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 5}, Value: []byte{0x05, 0x00}},
		},
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, template, issuerCert, key.Public(), issuerKey)
	if err != nil {
		Fail(p.T, "failed to create delegated responder cert: %v", err)
	}
	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		Fail(p.T, "failed to parse delegated responder cert: %v", err)
	}

	p.DelegatedResponderKey = key
	p.DelegatedResponderCert = cert
}

// revokedSerials returns RevokedSerials, or a fixed filler entry if unset,
// so the mock CRL is never trivially empty.
func (p *TestPKI) revokedSerials() []*big.Int {
	if len(p.RevokedSerials) == 0 {
		return []*big.Int{big.NewInt(9999)}
	}
	return p.RevokedSerials
}

// buildCRL regenerates the mock CRL over the current RevokedSerials. Tests
// may set RevokedSerials before or after StartCRLServer and see it reflected
// in both the CRL and OCSP endpoints, since both consult it per-request.
func (p *TestPKI) buildCRL() []byte {
	issuerCert, issuerKey := p.IssuerCertAndKey()

	revoked := p.revokedSerials()
	revokedCerts := make([]pkix.RevokedCertificate, 0, len(revoked))
	for _, serial := range revoked {
		revokedCerts = append(revokedCerts, pkix.RevokedCertificate{
			SerialNumber:   serial,
			RevocationTime: time.Now(),
		})
	}

	crlTemplate := &x509.RevocationList{
		Number:              big.NewInt(1),
		ThisUpdate:          time.Now(),
		NextUpdate:          time.Now().Add(24 * time.Hour),
		RevokedCertificates: revokedCerts,
	}

	crlBytes, err := x509.CreateRevocationList(rand.Reader, crlTemplate, issuerCert, issuerKey)
	if err != nil {
		Fail(p.T, "failed to create CRL: %v", err)
	}
	return crlBytes
}

// StartCRLServer starts a mock HTTP server that answers CRL, OCSP, and
// caIssuers requests for leaf certificates IssueLeaf produces, consulting
// RevokedSerials per request.
func (p *TestPKI) StartCRLServer() {
	if len(p.IntermediateCerts) == 0 {
		return
	}
	issuerCert, issuerKey := p.IssuerCertAndKey()

	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crl" {
			p.Requests++
			p.CRLBytes = p.buildCRL()
			w.Header().Set("Content-Type", "application/pkix-crl")
			_, _ = w.Write(p.CRLBytes)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/ocsp") {
			p.OCSPRequests++

			if p.FailOCSP {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			parts := strings.Split(r.URL.Path, "/")
			if len(parts) < 3 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b64Req := parts[len(parts)-1]

			reqBytes, err := base64.StdEncoding.DecodeString(b64Req)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			ocspReq, err := ocsp.ParseRequest(reqBytes)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			now := time.Now()
			status := ocsp.Good
			for _, serial := range p.revokedSerials() {
				if serial.Cmp(ocspReq.SerialNumber) == 0 {
					status = ocsp.Revoked
					break
				}
			}

			template := ocsp.Response{
				Status:       status,
				SerialNumber: ocspReq.SerialNumber,
				ThisUpdate:   now.Add(-1 * time.Hour),
				NextUpdate:   now.Add(24 * time.Hour),
			}

			responderCert, responderKey := issuerCert, issuerKey
			if p.DelegatedResponderCert != nil {
				responderCert, responderKey = p.DelegatedResponderCert, p.DelegatedResponderKey
				template.Certificate = p.DelegatedResponderCert
			}

			respBytes, err := ocsp.CreateResponse(issuerCert, responderCert, template, responderKey)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/ocsp-response")
			_, _ = w.Write(respBytes)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/ca") {
			w.Header().Set("Content-Type", "application/x-x509-ca-cert")
			_, _ = w.Write(issuerCert.Raw)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

// IssueLeaf generates a leaf certificate under the issuing CA, pointing its
// CRL distribution point, OCSP responder, and caIssuers AIA entries at the
// mock server.
func (p *TestPKI) IssueLeaf(commonName string) (crypto.Signer, *x509.Certificate) {
	if p.Server == nil {
		Fail(p.T, "StartCRLServer() must be called before IssueLeaf")
	}

	priv := GenerateKey(p.T, p.Profile)

	serialNumber, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"gotrust Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(1 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		CRLDistributionPoints: []string{fmt.Sprintf("%s/crl", p.Server.URL)},
		OCSPServer:            []string{fmt.Sprintf("%s/ocsp", p.Server.URL)},
		IssuingCertificateURL: []string{fmt.Sprintf("%s/ca", p.Server.URL)},
	}

	issuerCert, issuerKey := p.IssuerCertAndKey()

	certBytes, err := x509.CreateCertificate(rand.Reader, template, issuerCert, priv.Public(), issuerKey)
	if err != nil {
		Fail(p.T, "failed to issue leaf cert: %v", err)
	}

	leafCert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		Fail(p.T, "failed to parse leaf cert: %v", err)
	}

	return priv, leafCert
}

// Chain returns the full certificate chain for a leaf issued by p, ordered
// leaf-adjacent first: Intermediate(s) -> Root.
func (p *TestPKI) Chain() []*x509.Certificate {
	var chain []*x509.Certificate
	for i := len(p.IntermediateCerts) - 1; i >= 0; i-- {
		chain = append(chain, p.IntermediateCerts[i])
	}
	chain = append(chain, p.RootCert)
	return chain
}

// Close stops the mock server.
func (p *TestPKI) Close() {
	if p.Server != nil {
		p.Server.Close()
	}
}

func Fail(t *testing.T, format string, args ...interface{}) {
	if t != nil {
		t.Fatalf(format, args...)
	} else {
		log.Fatalf(format, args...)
	}
}

func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	switch profile {
	case RSA_2048:
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			Fail(t, "failed to generate RSA 2048 key: %v", err)
		}
		return k
	case RSA_3072:
		k, err := rsa.GenerateKey(rand.Reader, 3072)
		if err != nil {
			Fail(t, "failed to generate RSA 3072 key: %v", err)
		}
		return k
	case RSA_4096:
		k, err := rsa.GenerateKey(rand.Reader, 4096)
		if err != nil {
			Fail(t, "failed to generate RSA 4096 key: %v", err)
		}
		return k
	case ECDSA_P256:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			Fail(t, "failed to generate P-256 key: %v", err)
		}
		return k
	case ECDSA_P384:
		k, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		if err != nil {
			Fail(t, "failed to generate P-384 key: %v", err)
		}
		return k
	case ECDSA_P521:
		k, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
		if err != nil {
			Fail(t, "failed to generate P-521 key: %v", err)
		}
		return k
	default:
		Fail(t, "unknown key profile: %s", profile)
		return nil
	}
}
