package crllinker

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"math/big"
	"net/http"
	"testing"
	"time"

	trust "github.com/digitorus/gotrust"
	"github.com/digitorus/gotrust/internal/testpki"
	"github.com/digitorus/gotrust/revocation"
)

type staticCrlRepository struct {
	raw []byte
	err error
}

func (s staticCrlRepository) FindCRL(context.Context, string, *x509.Certificate, time.Time) ([]byte, error) {
	return s.raw, s.err
}

func newLeaf(t *testing.T) (*testpki.TestPKI, *x509.Certificate) {
	t.Helper()
	pki := testpki.NewTestPKI(t)
	pki.StartCRLServer()
	t.Cleanup(pki.Close)
	_, leaf := pki.IssueLeaf("crl-linker leaf")
	return pki, leaf
}

func fetchCRL(t *testing.T, leaf *x509.Certificate) []byte {
	t.Helper()
	resp, err := http.Get(leaf.CRLDistributionPoints[0])
	if err != nil {
		t.Fatalf("fetching mock CRL: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading mock CRL: %v", err)
	}
	return body
}

func TestCrlTrustLinkerTrustedWhenNotRevoked(t *testing.T) {
	pki, leaf := newLeaf(t)
	raw := fetchCRL(t, leaf)

	linker := New(staticCrlRepository{raw: raw})
	revData := revocation.NewRevocationData()
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revData, nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v", err)
	}
	if result != trust.Trusted {
		t.Fatalf("HasTrustLink() result = %v, want Trusted", result)
	}
	if len(revData.CRL) != 1 {
		t.Errorf("expected the consulted CRL to be recorded, got %+v", revData.CRL)
	}
}

func TestCrlTrustLinkerRevoked(t *testing.T) {
	pki, leaf := newLeaf(t)
	pki.RevokedSerials = []*big.Int{leaf.SerialNumber}
	raw := fetchCRL(t, leaf)

	linker := New(staticCrlRepository{raw: raw})
	_, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revocation.NewRevocationData(), nil)

	var lerr *trust.TrustLinkerError
	if !errors.As(err, &lerr) || lerr.Reason != trust.InvalidRevocationStatus {
		t.Fatalf("HasTrustLink() error = %v, want InvalidRevocationStatus", err)
	}
}

func TestCrlTrustLinkerMissingCRLIsUndecided(t *testing.T) {
	pki, leaf := newLeaf(t)

	linker := New(staticCrlRepository{raw: nil})
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revocation.NewRevocationData(), nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v, want nil", err)
	}
	if result != trust.Undecided {
		t.Fatalf("HasTrustLink() result = %v, want Undecided", result)
	}
}

func TestCrlTrustLinkerRepositoryErrorIsUndecided(t *testing.T) {
	pki, leaf := newLeaf(t)

	linker := New(staticCrlRepository{err: errors.New("network down")})
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revocation.NewRevocationData(), nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v, want nil (soft-fail)", err)
	}
	if result != trust.Undecided {
		t.Fatalf("HasTrustLink() result = %v, want Undecided", result)
	}
}

func TestCrlTrustLinkerWrongIssuerSignatureIsUndecided(t *testing.T) {
	_, leaf := newLeaf(t)
	raw := fetchCRL(t, leaf)

	other := testpki.NewTestPKI(t)
	other.StartCRLServer()
	t.Cleanup(other.Close)

	linker := New(staticCrlRepository{raw: raw})
	result, err := linker.HasTrustLink(context.Background(), leaf, other.IntermediateCerts[0], time.Now(), revocation.NewRevocationData(), nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v, want nil", err)
	}
	if result != trust.Undecided {
		t.Fatalf("HasTrustLink() result = %v, want Undecided", result)
	}
}

func TestCrlTrustLinkerStaleCRLIsUndecided(t *testing.T) {
	pki, leaf := newLeaf(t)
	raw := fetchCRL(t, leaf)

	linker := New(staticCrlRepository{raw: raw}, WithFreshness(0))
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now().Add(48*time.Hour), revocation.NewRevocationData(), nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v, want nil", err)
	}
	if result != trust.Undecided {
		t.Fatalf("HasTrustLink() result = %v, want Undecided", result)
	}
}
