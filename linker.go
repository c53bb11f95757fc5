package trust

import (
	"context"
	"crypto/x509"
	"time"

	"github.com/digitorus/gotrust/revocation"
)

// Result is the outcome of a single trust linker's judgement about a
// (child, issuer) pair. It is never the channel for a definitive failure;
// those are returned as a *TrustLinkerError instead.
type Result int

const (
	// Undecided means the linker could not establish trust for this pair,
	// but found nothing that contradicts it either. The caller should
	// consult the next configured linker.
	Undecided Result = iota
	// Trusted means the linker positively established its aspect of trust
	// for this pair (e.g. the signature chains correctly, or the
	// revocation source reports the certificate as good).
	Trusted
)

// AlgorithmPolicy decides whether a signature algorithm may still be relied
// upon at a given validation date.
type AlgorithmPolicy interface {
	CheckSignatureAlgorithm(algo x509.SignatureAlgorithm, validationDate time.Time) error
}

// TrustLinker evaluates one aspect of a (child, issuer) relationship. It is
// stateless with respect to any single validation call: all the state it
// needs is passed in, and any evidence it gathers is written to revData.
type TrustLinker interface {
	HasTrustLink(ctx context.Context, child, issuer *x509.Certificate, validationDate time.Time, revData *revocation.RevocationData, algPolicy AlgorithmPolicy) (Result, error)
}

// CertificateRepository answers whether a certificate is an out-of-band
// trusted anchor. Membership is by encoded-bytes equality.
type CertificateRepository interface {
	IsTrustPoint(cert *x509.Certificate) bool
}
