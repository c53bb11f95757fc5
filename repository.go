package trust

import (
	"bytes"
	"crypto/x509"
)

// MemoryCertificateRepository is a static, in-process CertificateRepository.
// It holds the set of trust anchors a TrustValidator's chains must terminate
// at, and answers IsTrustPoint by comparing raw encoded bytes.
type MemoryCertificateRepository struct {
	anchors []*x509.Certificate
}

// NewMemoryCertificateRepository builds a CertificateRepository from a fixed
// set of trust anchors.
func NewMemoryCertificateRepository(anchors ...*x509.Certificate) *MemoryCertificateRepository {
	return &MemoryCertificateRepository{anchors: anchors}
}

// AddAnchor adds an additional trust anchor to the repository.
func (r *MemoryCertificateRepository) AddAnchor(cert *x509.Certificate) {
	r.anchors = append(r.anchors, cert)
}

func (r *MemoryCertificateRepository) IsTrustPoint(cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}
	for _, anchor := range r.anchors {
		if bytes.Equal(cert.Raw, anchor.Raw) {
			return true
		}
	}
	return false
}
