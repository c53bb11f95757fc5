// Package policy implements AlgorithmPolicy, the date-gated signature
// algorithm acceptance rule consulted by every trust linker.
package policy

import (
	"crypto/x509"
	"time"

	trust "github.com/digitorus/gotrust"
)

// Rule disallows algo from validationDate onward (inclusive). A zero
// NotAllowedFrom means the algorithm is always disallowed.
type Rule struct {
	Algorithm      x509.SignatureAlgorithm
	NotAllowedFrom time.Time
}

// DateGatedPolicy rejects a fixed set of algorithms once their cutoff date
// has passed. It is immutable after construction and safe for concurrent
// use, matching the stateless-collaborator requirement every TrustLinker
// depends on.
type DateGatedPolicy struct {
	rules map[x509.SignatureAlgorithm]time.Time
}

// NewDateGatedPolicy builds a policy from an explicit rule set.
func NewDateGatedPolicy(rules []Rule) *DateGatedPolicy {
	p := &DateGatedPolicy{rules: make(map[x509.SignatureAlgorithm]time.Time, len(rules))}
	for _, r := range rules {
		p.rules[r.Algorithm] = r.NotAllowedFrom
	}
	return p
}

// sha1Sunset is the date the CA/Browser Forum baseline requirements stopped
// permitting newly issued publicly trusted certificates to use SHA-1.
var sha1Sunset = time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultAlgorithmPolicy rejects MD5-based signatures unconditionally and
// SHA-1-based signatures from 2016 onward. It accepts everything else
// crypto/x509 is able to parse.
func DefaultAlgorithmPolicy() *DateGatedPolicy {
	return NewDateGatedPolicy([]Rule{
		{Algorithm: x509.MD5WithRSA, NotAllowedFrom: time.Time{}},
		{Algorithm: x509.SHA1WithRSA, NotAllowedFrom: sha1Sunset},
		{Algorithm: x509.DSAWithSHA1, NotAllowedFrom: sha1Sunset},
		{Algorithm: x509.ECDSAWithSHA1, NotAllowedFrom: sha1Sunset},
	})
}

func (p *DateGatedPolicy) CheckSignatureAlgorithm(algo x509.SignatureAlgorithm, validationDate time.Time) error {
	cutoff, disallowed := p.rules[algo]
	if !disallowed {
		return nil
	}
	if validationDate.Equal(cutoff) || validationDate.After(cutoff) {
		return trust.NewError(trust.ConstraintViolation, "signature algorithm "+algo.String()+" is not accepted at this validation date", nil)
	}
	return nil
}
