package revocation

import (
	"encoding/asn1"

	"github.com/digitorus/pkcs7"
)

// revocationInfoArchivalOID is the PKCS#7 signed-attribute OID a signature
// producer uses to carry revocation evidence for its certificate chain
// (1.2.840.113583.1.1.8), the same attribute PDF signing tools populate.
var revocationInfoArchivalOID = asn1.ObjectIdentifier{1, 2, 840, 113583, 1, 1, 8}

// FromSignedData extracts the revocation evidence a PKCS#7 signed-data
// object carries in its revocation-info-archival signed attribute, if any,
// and returns it as a RevocationData accumulator ready to feed into
// TrustValidator.IsTrustedAt as pre-gathered evidence.
func FromSignedData(p7 *pkcs7.PKCS7) (*RevocationData, error) {
	var archival InfoArchival
	if err := p7.UnmarshalSignedAttribute(revocationInfoArchivalOID, &archival); err != nil {
		return NewRevocationData(), nil
	}
	return FromInfoArchival(&archival), nil
}
