package trust

import (
	"bytes"
	"context"
	"crypto/x509"
	"time"

	"github.com/digitorus/gotrust/revocation"
)

// TrustValidator first checks that a certificate chain terminates at a trust
// anchor, then walks it end-entity-first, running the mandatory
// PublicKeyTrustLinker for every pair followed by the configured revocation
// linkers in order.
//
// A TrustValidator and its configured linkers are safe for concurrent use
// across multiple IsTrusted calls provided the CertificateRepository and
// AlgorithmPolicy it was built with are themselves safe for concurrent use.
// All mutable state lives in the per-call RevocationData.
type TrustValidator struct {
	repository        CertificateRepository
	algorithmPolicy   AlgorithmPolicy
	basicLinker       TrustLinker
	revocationLinkers []TrustLinker
}

// NewTrustValidator builds a validator against the given trust anchor
// repository. Revocation linkers are added with AddTrustLinker; without any,
// a chain is trusted on the strength of the public key link alone.
func NewTrustValidator(repository CertificateRepository) *TrustValidator {
	return &TrustValidator{
		repository:  repository,
		basicLinker: NewPublicKeyTrustLinker(),
	}
}

// AddTrustLinker appends a revocation (or other supplementary) linker to the
// end of the configured chain. Linkers run in the order they were added.
func (v *TrustValidator) AddTrustLinker(linker TrustLinker) {
	v.revocationLinkers = append(v.revocationLinkers, linker)
}

// SetAlgorithmPolicy overrides the default algorithm policy.
func (v *TrustValidator) SetAlgorithmPolicy(p AlgorithmPolicy) {
	v.algorithmPolicy = p
}

// IsTrusted validates chain as of the current time with a fresh
// RevocationData accumulator.
func (v *TrustValidator) IsTrusted(ctx context.Context, chain []*x509.Certificate) error {
	return v.IsTrustedAt(ctx, chain, time.Now().UTC(), revocation.NewRevocationData())
}

// IsTrustedAt validates chain as of validationDate, recording any revocation
// evidence it gathers into revData. revData must not be nil.
func (v *TrustValidator) IsTrustedAt(ctx context.Context, chain []*x509.Certificate, validationDate time.Time, revData *revocation.RevocationData) error {
	if len(chain) == 0 {
		return NewError(NoTrust, "chain is empty", nil)
	}

	root := chain[len(chain)-1]
	if !v.repository.IsTrustPoint(root) {
		return NewError(RootNotTrusted, "chain does not terminate at a trust anchor", nil)
	}
	if isSelfSigned(root) {
		if _, err := v.basicLinker.HasTrustLink(ctx, root, root, validationDate, revData, v.algorithmPolicy); err != nil {
			return err
		}
	}

	for i := 0; i < len(chain)-1; i++ {
		child := chain[i]
		issuer := chain[i+1]

		if _, err := v.basicLinker.HasTrustLink(ctx, child, issuer, validationDate, revData, v.algorithmPolicy); err != nil {
			return err
		}

		if len(v.revocationLinkers) == 0 {
			continue
		}

		decided := false
		for _, linker := range v.revocationLinkers {
			result, err := linker.HasTrustLink(ctx, child, issuer, validationDate, revData, v.algorithmPolicy)
			if err != nil {
				return err
			}
			if result == Trusted {
				decided = true
				break
			}
		}

		if !decided {
			return NewError(NoTrust, "no revocation linker could establish trust for this pair", nil)
		}
	}

	return nil
}

func isSelfSigned(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawIssuer, cert.RawSubject) && cert.CheckSignatureFrom(cert) == nil
}
