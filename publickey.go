package trust

import (
	"bytes"
	"context"
	"crypto/x509"
	"time"

	"github.com/digitorus/gotrust/revocation"
)

// PublicKeyTrustLinker verifies the basic cryptographic and structural
// relationship between a child certificate and its alleged issuer: name
// matching, signature, validity window, issuer capability, and algorithm
// policy. It never attaches revocation evidence and is always run first for
// every pair.
type PublicKeyTrustLinker struct{}

// NewPublicKeyTrustLinker returns the mandatory basic trust linker.
func NewPublicKeyTrustLinker() *PublicKeyTrustLinker {
	return &PublicKeyTrustLinker{}
}

func (l *PublicKeyTrustLinker) HasTrustLink(_ context.Context, child, issuer *x509.Certificate, validationDate time.Time, _ *revocation.RevocationData, algPolicy AlgorithmPolicy) (Result, error) {
	if !bytes.Equal(issuer.RawSubject, child.RawIssuer) {
		return Undecided, NewError(InvalidSignature, "issuer subject does not match child issuer", nil)
	}

	if err := child.CheckSignatureFrom(issuer); err != nil {
		return Undecided, NewError(InvalidSignature, "signature verification failed", err)
	}

	if validationDate.Before(child.NotBefore) || validationDate.After(child.NotAfter) {
		return Undecided, NewError(InvalidValidityInterval, "validation date outside certificate validity window", nil)
	}

	if !issuer.IsCA || issuer.KeyUsage&x509.KeyUsageCertSign == 0 {
		return Undecided, NewError(ConstraintViolation, "issuer is not authorized to sign certificates", nil)
	}

	if algPolicy != nil {
		if err := algPolicy.CheckSignatureAlgorithm(child.SignatureAlgorithm, validationDate); err != nil {
			return Undecided, err
		}
	}

	return Trusted, nil
}
