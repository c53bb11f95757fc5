package revocation

import (
	"crypto/x509"
	"testing"
)

func TestInfoArchivalAddCRLAndOCSP(t *testing.T) {
	info := InfoArchival{}

	if err := info.AddCRL([]byte("crl")); err != nil {
		t.Errorf("AddCRL() error = %v", err)
	}
	if len(info.CRL) != 1 {
		t.Error("AddCRL did not append to CRL")
	}

	if err := info.AddOCSP([]byte("ocsp")); err != nil {
		t.Errorf("AddOCSP() error = %v", err)
	}
	if len(info.OCSP) != 1 {
		t.Error("AddOCSP did not append to OCSP")
	}
}

func TestInfoArchivalIsRevokedMalformedEntriesSkipped(t *testing.T) {
	info := InfoArchival{}
	_ = info.AddCRL([]byte("not a crl"))
	_ = info.AddOCSP([]byte("not an ocsp response"))

	if info.IsRevoked(&x509.Certificate{}) {
		t.Error("expected malformed CRL/OCSP entries to be skipped, not treated as revoked")
	}
}

func TestInfoArchivalIsRevokedEmpty(t *testing.T) {
	info := InfoArchival{}
	if info.IsRevoked(&x509.Certificate{}) {
		t.Error("expected an empty InfoArchival to never report a certificate as revoked")
	}
}
