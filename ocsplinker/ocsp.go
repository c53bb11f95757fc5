// Package ocsplinker implements the OCSP-based revocation TrustLinker: it
// locates the responder URI from a certificate's Authority Information
// Access extension, fetches a response through an OcspRepository, verifies
// the responder is authorized (the issuing CA itself, or a delegated
// responder with the right key usage, extension, and chain of trust), and
// reconciles the response's freshness window against the validation date.
package ocsplinker

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"time"

	"golang.org/x/crypto/ocsp"

	trust "github.com/digitorus/gotrust"
	"github.com/digitorus/gotrust/revocation"
)

// ErrServerUnavailable is the sentinel an OcspRepository wraps or returns
// directly to signal that the OCSP responder could not be reached at all
// (as opposed to simply having nothing to say about this certificate).
var ErrServerUnavailable = errors.New("ocsplinker: ocsp responder not available")

// OcspRepository resolves an OCSP response for (child, issuer) as of
// validationDate. uri is the Authority Information Access OCSP URI from the
// child certificate, or empty if the certificate carried none — the
// repository may still resolve a response out of band in that case. A nil,
// nil return means no response is available; it is not an error.
type OcspRepository interface {
	FindOCSPResponse(ctx context.Context, uri string, child, issuer *x509.Certificate, validationDate time.Time) ([]byte, error)
}

// DefaultFreshness is the symmetric tolerance applied around an OCSP
// response's thisUpdate/nextUpdate window when none is configured.
const DefaultFreshness = 5 * time.Minute

// idPkixOcspNoCheck marks a delegated OCSP responder certificate as exempt
// from revocation checking of itself (RFC 6960 §4.2.2.2.1).
var idPkixOcspNoCheck = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 5}

// OcspTrustLinker is the OCSP revocation TrustLinker.
type OcspTrustLinker struct {
	repository OcspRepository
	freshness  time.Duration
}

// Option configures an OcspTrustLinker.
type Option func(*OcspTrustLinker)

// WithFreshness overrides DefaultFreshness.
func WithFreshness(d time.Duration) Option {
	return func(l *OcspTrustLinker) { l.freshness = d }
}

// New builds an OcspTrustLinker backed by repository.
func New(repository OcspRepository, opts ...Option) *OcspTrustLinker {
	l := &OcspTrustLinker{repository: repository, freshness: DefaultFreshness}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *OcspTrustLinker) HasTrustLink(ctx context.Context, child, issuer *x509.Certificate, validationDate time.Time, revData *revocation.RevocationData, algPolicy trust.AlgorithmPolicy) (trust.Result, error) {
	uri := ""
	if len(child.OCSPServer) > 0 {
		uri = child.OCSPServer[0]
	}

	raw, err := l.repository.FindOCSPResponse(ctx, uri, child, issuer, validationDate)
	if err != nil {
		return trust.Undecided, trust.NewError(trust.OCSPUnavailable, "ocsp repository could not be consulted", err)
	}
	if raw == nil {
		return trust.Undecided, nil
	}

	// ParseResponse fails if the outer OCSPResponseStatus wasn't
	// "successful" — that is itself an UNDECIDED, not a hard failure,
	// so the CRL linker gets a chance.
	resp, err := ocsp.ParseResponse(raw, nil)
	if err != nil {
		return trust.Undecided, nil
	}

	if algPolicy != nil {
		if err := algPolicy.CheckSignatureAlgorithm(resp.SignatureAlgorithm, validationDate); err != nil {
			return trust.Undecided, err
		}
	}

	if ok, err := l.verifyResponder(ctx, resp, issuer, validationDate, revData, algPolicy); err != nil {
		return trust.Undecided, err
	} else if !ok {
		return trust.Undecided, nil
	}

	if resp.SerialNumber == nil || resp.SerialNumber.Cmp(child.SerialNumber) != 0 {
		return trust.Undecided, nil
	}

	thisUpdate := resp.ThisUpdate
	nextUpdate := resp.NextUpdate
	if nextUpdate.IsZero() {
		nextUpdate = thisUpdate
	}
	begin := thisUpdate.Add(-l.freshness)
	end := nextUpdate.Add(l.freshness)
	vd := validationDate.UTC()
	if vd.Before(begin) || vd.After(end) {
		return trust.Undecided, nil
	}

	if resp.Status == ocsp.Good {
		revData.AddOCSP(raw, uri)
		return trust.Trusted, nil
	}

	revData.AddOCSP(raw, uri)
	return trust.Undecided, trust.NewError(trust.InvalidRevocationStatus, "certificate is revoked per OCSP", nil)
}

// verifyResponder implements spec step 5: it establishes that resp was
// signed by an authority entitled to speak for issuer, either issuer itself
// or a delegated responder certificate issuer vouches for.
func (l *OcspTrustLinker) verifyResponder(ctx context.Context, resp *ocsp.Response, issuer *x509.Certificate, validationDate time.Time, revData *revocation.RevocationData, algPolicy trust.AlgorithmPolicy) (bool, error) {
	responderCert := resp.Certificate

	if responderCert == nil {
		// Case A: the issuing CA signed the response directly.
		if err := issuer.CheckSignature(resp.SignatureAlgorithm, resp.TBSResponseData, resp.Signature); err != nil {
			return false, nil
		}
		return true, nil
	}

	// Case B: a responder certificate was embedded.
	if err := responderCert.CheckSignature(resp.SignatureAlgorithm, resp.TBSResponseData, resp.Signature); err != nil {
		return false, nil
	}

	if bytes.Equal(responderCert.Raw, issuer.Raw) {
		return true, nil
	}

	// Delegated responder.
	if algPolicy != nil {
		if err := algPolicy.CheckSignatureAlgorithm(responderCert.SignatureAlgorithm, validationDate); err != nil {
			return false, err
		}
	}

	basicLinker := trust.NewPublicKeyTrustLinker()
	if _, err := basicLinker.HasTrustLink(ctx, responderCert, issuer, validationDate, revData, algPolicy); err != nil {
		return false, nil
	}

	if !hasExtension(responderCert, idPkixOcspNoCheck) {
		return false, nil
	}
	if !hasExtKeyUsage(responderCert, x509.ExtKeyUsageOCSPSigning) {
		return false, nil
	}

	return true, nil
}

func hasExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return true
		}
	}
	return false
}

func hasExtKeyUsage(cert *x509.Certificate, eku x509.ExtKeyUsage) bool {
	for _, u := range cert.ExtKeyUsage {
		if u == eku {
			return true
		}
	}
	return false
}
