package ocsplinker

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/ocsp"

	trust "github.com/digitorus/gotrust"
	"github.com/digitorus/gotrust/internal/testpki"
	"github.com/digitorus/gotrust/revocation"
)

type staticOcspRepository struct {
	raw []byte
	err error
}

func (s staticOcspRepository) FindOCSPResponse(context.Context, string, *x509.Certificate, *x509.Certificate, time.Time) ([]byte, error) {
	return s.raw, s.err
}

func newLeaf(t *testing.T) (*testpki.TestPKI, *x509.Certificate) {
	t.Helper()
	pki := testpki.NewTestPKI(t)
	pki.StartCRLServer()
	t.Cleanup(pki.Close)
	_, leaf := pki.IssueLeaf("ocsp-linker leaf")
	return pki, leaf
}

// fetchOCSPResponse drives the mock server's /ocsp/<base64 request> route the
// way a real OcspRepository would, over plain HTTP.
func fetchOCSPResponse(t *testing.T, pki *testpki.TestPKI, leaf *x509.Certificate, issuer *x509.Certificate) []byte {
	t.Helper()

	reqBytes, err := ocsp.CreateRequest(leaf, issuer, nil)
	if err != nil {
		t.Fatalf("ocsp.CreateRequest() error = %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString(reqBytes)

	resp, err := http.Get(fmt.Sprintf("%s/%s", leaf.OCSPServer[0], encoded))
	if err != nil {
		t.Fatalf("fetching mock OCSP response: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mock OCSP server returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading mock OCSP response: %v", err)
	}
	return body
}

func TestOcspTrustLinkerTrustedGoodResponse(t *testing.T) {
	pki, leaf := newLeaf(t)
	raw := fetchOCSPResponse(t, pki, leaf, pki.IntermediateCerts[0])

	linker := New(staticOcspRepository{raw: raw})
	revData := revocation.NewRevocationData()
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revData, nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v", err)
	}
	if result != trust.Trusted {
		t.Fatalf("HasTrustLink() result = %v, want Trusted", result)
	}
	if len(revData.OCSP) != 1 {
		t.Errorf("expected the consulted response to be recorded, got %+v", revData.OCSP)
	}
}

func TestOcspTrustLinkerRevoked(t *testing.T) {
	pki := testpki.NewTestPKI(t)
	pki.StartCRLServer()
	t.Cleanup(pki.Close)

	_, leaf := pki.IssueLeaf("revoked leaf")
	pki.RevokedSerials = []*big.Int{leaf.SerialNumber}

	raw := fetchOCSPResponse(t, pki, leaf, pki.IntermediateCerts[0])

	linker := New(staticOcspRepository{raw: raw})
	revData := revocation.NewRevocationData()
	_, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revData, nil)

	var lerr *trust.TrustLinkerError
	if !errors.As(err, &lerr) || lerr.Reason != trust.InvalidRevocationStatus {
		t.Fatalf("HasTrustLink() error = %v, want InvalidRevocationStatus", err)
	}
}

func TestOcspTrustLinkerNoResponseIsUndecided(t *testing.T) {
	pki, leaf := newLeaf(t)

	linker := New(staticOcspRepository{raw: nil})
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revocation.NewRevocationData(), nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v, want nil", err)
	}
	if result != trust.Undecided {
		t.Fatalf("HasTrustLink() result = %v, want Undecided", result)
	}
}

func TestOcspTrustLinkerRepositoryErrorIsOCSPUnavailable(t *testing.T) {
	pki, leaf := newLeaf(t)

	linker := New(staticOcspRepository{err: errors.New("network down")})
	_, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revocation.NewRevocationData(), nil)

	var lerr *trust.TrustLinkerError
	if !errors.As(err, &lerr) || lerr.Reason != trust.OCSPUnavailable {
		t.Fatalf("HasTrustLink() error = %v, want OCSPUnavailable", err)
	}
}

func TestOcspTrustLinkerDelegatedResponder(t *testing.T) {
	pki, leaf := newLeaf(t)
	pki.IssueDelegatedResponder()
	raw := fetchOCSPResponse(t, pki, leaf, pki.IntermediateCerts[0])

	linker := New(staticOcspRepository{raw: raw})
	revData := revocation.NewRevocationData()
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now(), revData, nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v", err)
	}
	if result != trust.Trusted {
		t.Fatalf("HasTrustLink() result = %v, want Trusted", result)
	}
}

func TestOcspTrustLinkerStaleResponseIsUndecided(t *testing.T) {
	pki, leaf := newLeaf(t)
	raw := fetchOCSPResponse(t, pki, leaf, pki.IntermediateCerts[0])

	linker := New(staticOcspRepository{raw: raw}, WithFreshness(0))
	// The mock response's nextUpdate is 24h past the real "now", so
	// validating well beyond that pushes it outside a zero-tolerance
	// freshness window.
	result, err := linker.HasTrustLink(context.Background(), leaf, pki.IntermediateCerts[0], time.Now().Add(48*time.Hour), revocation.NewRevocationData(), nil)
	if err != nil {
		t.Fatalf("HasTrustLink() error = %v, want nil", err)
	}
	if result != trust.Undecided {
		t.Fatalf("HasTrustLink() result = %v, want Undecided", result)
	}
}
