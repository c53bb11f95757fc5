// Package revocation holds the evidence a trust-linking validation gathers
// while consulting OCSP and CRL sources, plus the ASN.1 container used to
// re-embed that evidence alongside a signature.
package revocation

// OCSPRevocationData is one OCSP response a linker successfully consulted.
type OCSPRevocationData struct {
	EncodedResponse []byte
	URI             string
}

// CRLRevocationData is one CRL a linker successfully consulted.
type CRLRevocationData struct {
	EncodedCRL []byte
	URI        string
}

// RevocationData accumulates the revocation evidence gathered during a
// single TrustValidator.IsTrustedAt call. It is created fresh per call (or
// supplied by the caller), mutated only by linkers that actually consulted a
// source, and remains safe to read after the call returns — including after
// a failing call, since evidence gathered before the failure is never
// retracted.
//
// RevocationData is not safe for concurrent writes; a single validation
// walks its chain sequentially, so this only matters if a caller reuses one
// instance across concurrent validations, which it should not do.
type RevocationData struct {
	OCSP []OCSPRevocationData
	CRL  []CRLRevocationData
}

// NewRevocationData returns an empty accumulator.
func NewRevocationData() *RevocationData {
	return &RevocationData{}
}

// AddOCSP records a consulted OCSP response.
func (d *RevocationData) AddOCSP(encoded []byte, uri string) {
	d.OCSP = append(d.OCSP, OCSPRevocationData{EncodedResponse: encoded, URI: uri})
}

// AddCRL records a consulted CRL.
func (d *RevocationData) AddCRL(encoded []byte, uri string) {
	d.CRL = append(d.CRL, CRLRevocationData{EncodedCRL: encoded, URI: uri})
}

// ToInfoArchival packs the accumulated evidence into the PKCS#7-flavored
// container so it can be re-attached to a signed document the way the
// evidence originally arrived in one.
func (d *RevocationData) ToInfoArchival() (*InfoArchival, error) {
	info := &InfoArchival{}
	for _, o := range d.OCSP {
		if err := info.AddOCSP(o.EncodedResponse); err != nil {
			return nil, err
		}
	}
	for _, c := range d.CRL {
		if err := info.AddCRL(c.EncodedCRL); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// FromInfoArchival unpacks a previously embedded container back into a
// RevocationData accumulator. URIs are not recoverable from the container
// and are left empty.
func FromInfoArchival(info *InfoArchival) *RevocationData {
	d := NewRevocationData()
	for _, o := range info.OCSP {
		d.AddOCSP(o.FullBytes, "")
	}
	for _, c := range info.CRL {
		d.AddCRL(c.FullBytes, "")
	}
	return d
}
