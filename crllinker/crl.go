// Package crllinker implements the CRL-based revocation TrustLinker, the
// fallback consulted when the OCSP linker cannot decide.
package crllinker

import (
	"context"
	"crypto/x509"
	"time"

	trust "github.com/digitorus/gotrust"
	"github.com/digitorus/gotrust/revocation"
)

// CrlRepository resolves a CRL for issuer as of validationDate. uri is the
// child certificate's CRL distribution point, or empty if it had none. A
// nil, nil return means no CRL is available.
type CrlRepository interface {
	FindCRL(ctx context.Context, uri string, issuer *x509.Certificate, validationDate time.Time) ([]byte, error)
}

// DefaultFreshness is the symmetric tolerance applied around a CRL's
// thisUpdate/nextUpdate window when none is configured.
const DefaultFreshness = 5 * time.Minute

// CrlTrustLinker is the CRL revocation TrustLinker.
type CrlTrustLinker struct {
	repository CrlRepository
	freshness  time.Duration
}

// Option configures a CrlTrustLinker.
type Option func(*CrlTrustLinker)

// WithFreshness overrides DefaultFreshness.
func WithFreshness(d time.Duration) Option {
	return func(l *CrlTrustLinker) { l.freshness = d }
}

// New builds a CrlTrustLinker backed by repository.
func New(repository CrlRepository, opts ...Option) *CrlTrustLinker {
	l := &CrlTrustLinker{repository: repository, freshness: DefaultFreshness}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *CrlTrustLinker) HasTrustLink(ctx context.Context, child, issuer *x509.Certificate, validationDate time.Time, revData *revocation.RevocationData, algPolicy trust.AlgorithmPolicy) (trust.Result, error) {
	uri := ""
	if len(child.CRLDistributionPoints) > 0 {
		uri = child.CRLDistributionPoints[0]
	}

	// Per the CRL linker's soft-fail contract, a repository error is treated
	// the same as no CRL being available: only a definitive revoked status
	// aborts validation, everything else defers to "no evidence".
	raw, err := l.repository.FindCRL(ctx, uri, issuer, validationDate)
	if err != nil || raw == nil {
		return trust.Undecided, nil
	}

	crl, err := x509.ParseRevocationList(raw)
	if err != nil {
		return trust.Undecided, nil
	}

	if err := issuer.CheckSignature(crl.SignatureAlgorithm, crl.RawTBSRevocationList, crl.Signature); err != nil {
		return trust.Undecided, nil
	}

	if algPolicy != nil {
		if err := algPolicy.CheckSignatureAlgorithm(crl.SignatureAlgorithm, validationDate); err != nil {
			return trust.Undecided, err
		}
	}

	thisUpdate := crl.ThisUpdate
	nextUpdate := crl.NextUpdate
	if nextUpdate.IsZero() {
		nextUpdate = thisUpdate
	}
	begin := thisUpdate.Add(-l.freshness)
	end := nextUpdate.Add(l.freshness)
	vd := validationDate.UTC()
	if vd.Before(begin) || vd.After(end) {
		return trust.Undecided, nil
	}

	for _, entry := range crl.RevokedCertificateEntries {
		if entry.SerialNumber.Cmp(child.SerialNumber) == 0 {
			revData.AddCRL(raw, uri)
			return trust.Undecided, trust.NewError(trust.InvalidRevocationStatus, "certificate is revoked per CRL", nil)
		}
	}

	revData.AddCRL(raw, uri)
	return trust.Trusted, nil
}
