package revocation

import (
	"crypto/x509"
	"encoding/asn1"

	"golang.org/x/crypto/ocsp"
)

// InfoArchival is the ASN.1 container used to carry the revocation evidence
// gathered for a chain alongside a signature over that chain, the same
// on-wire shape as PKCS#7's id-aa-signingCertificateV2-adjacent revocation
// attribute (OID 1.2.840.113583.1.1.8). RevocationData.ToInfoArchival and
// FromInfoArchival bridge between the two.
type InfoArchival struct {
	CRL   CRL   `asn1:"tag:0,optional,explicit"`
	OCSP  OCSP  `asn1:"tag:1,optional,explicit"`
	Other Other `asn1:"tag:2,optional,explicit"`
}

// AddCRL embeds the raw bytes of a downloaded CRL.
func (r *InfoArchival) AddCRL(b []byte) error {
	r.CRL = append(r.CRL, asn1.RawValue{FullBytes: b})
	return nil
}

// AddOCSP embeds the raw bytes of an OCSP response.
func (r *InfoArchival) AddOCSP(b []byte) error {
	r.OCSP = append(r.OCSP, asn1.RawValue{FullBytes: b})
	return nil
}

// IsRevoked reports whether any embedded CRL or OCSP response marks c as
// revoked. Malformed entries are skipped rather than treated as revoked.
func (r *InfoArchival) IsRevoked(c *x509.Certificate) bool {
	for _, crlRaw := range r.CRL {
		crl, err := x509.ParseRevocationList(crlRaw.FullBytes)
		if err != nil {
			continue
		}
		for _, rc := range crl.RevokedCertificateEntries {
			if rc.SerialNumber.Cmp(c.SerialNumber) == 0 {
				return true
			}
		}
	}

	for _, ocspRaw := range r.OCSP {
		resp, err := ocsp.ParseResponse(ocspRaw.FullBytes, nil)
		if err != nil {
			continue
		}
		if resp.SerialNumber != nil && resp.SerialNumber.Cmp(c.SerialNumber) == 0 && resp.Status != ocsp.Good {
			return true
		}
	}

	return false
}

// CRL contains the raw bytes of pkix.CertificateLists, parseable with
// x509.ParseRevocationList.
type CRL []asn1.RawValue

// OCSP contains the raw bytes of OCSP responses, parseable with
// golang.org/x/crypto/ocsp.ParseResponse.
type OCSP []asn1.RawValue

// Other is the ASN.1 OtherRevInfo escape hatch for revocation evidence kinds
// this container doesn't model directly.
type Other struct {
	Type  asn1.ObjectIdentifier
	Value []byte
}
