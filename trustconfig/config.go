// Package trustconfig loads the tunable policy knobs a TrustValidator is
// wired up with: freshness windows, weak-algorithm cutoff dates, and the
// static trust anchor files to load into a CertificateRepository.
package trustconfig

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/digitorus/gotrust/policy"
)

// AlgorithmCutoff disallows Algorithm from NotAllowedFrom onward.
type AlgorithmCutoff struct {
	Algorithm      string `toml:"algorithm"`
	NotAllowedFrom string `toml:"not_allowed_from"`
}

// Config is the root of the TOML configuration file.
type Config struct {
	FreshnessSeconds     int               `toml:"freshness_seconds"`
	WeakAlgorithmCutoffs []AlgorithmCutoff `toml:"weak_algorithm_cutoff"`
	TrustAnchorFiles     []string          `toml:"trust_anchor_files"`
}

// Freshness returns the configured OCSP/CRL freshness tolerance, or
// DefaultFreshness if unset.
func (c Config) Freshness() time.Duration {
	if c.FreshnessSeconds <= 0 {
		return DefaultFreshness
	}
	return time.Duration(c.FreshnessSeconds) * time.Second
}

// DefaultFreshness is used when a Config doesn't set FreshnessSeconds.
const DefaultFreshness = 5 * time.Minute

var algorithmsByName = map[string]x509.SignatureAlgorithm{
	"MD5WithRSA":     x509.MD5WithRSA,
	"SHA1WithRSA":    x509.SHA1WithRSA,
	"DSAWithSHA1":    x509.DSAWithSHA1,
	"ECDSAWithSHA1":  x509.ECDSAWithSHA1,
	"SHA256WithRSA":  x509.SHA256WithRSA,
	"SHA384WithRSA":  x509.SHA384WithRSA,
	"SHA512WithRSA":  x509.SHA512WithRSA,
}

// AlgorithmPolicy builds the policy.DateGatedPolicy described by the config.
// An empty WeakAlgorithmCutoffs list falls back to policy.DefaultAlgorithmPolicy.
func (c Config) AlgorithmPolicy() (*policy.DateGatedPolicy, error) {
	if len(c.WeakAlgorithmCutoffs) == 0 {
		return policy.DefaultAlgorithmPolicy(), nil
	}

	rules := make([]policy.Rule, 0, len(c.WeakAlgorithmCutoffs))
	for _, cutoff := range c.WeakAlgorithmCutoffs {
		algo, ok := algorithmsByName[cutoff.Algorithm]
		if !ok {
			return nil, fmt.Errorf("trustconfig: unknown signature algorithm %q", cutoff.Algorithm)
		}

		var notAllowedFrom time.Time
		if cutoff.NotAllowedFrom != "" {
			t, err := time.Parse(time.RFC3339, cutoff.NotAllowedFrom)
			if err != nil {
				return nil, fmt.Errorf("trustconfig: invalid not_allowed_from for %s: %w", cutoff.Algorithm, err)
			}
			notAllowedFrom = t
		}

		rules = append(rules, policy.Rule{Algorithm: algo, NotAllowedFrom: notAllowedFrom})
	}

	return policy.NewDateGatedPolicy(rules), nil
}

// TrustAnchors loads and parses the PEM-encoded certificates named by
// TrustAnchorFiles.
func (c Config) TrustAnchors() ([]*x509.Certificate, error) {
	var anchors []*x509.Certificate
	for _, path := range c.TrustAnchorFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("trustconfig: reading trust anchor %s: %w", path, err)
		}

		for len(data) > 0 {
			var block *pem.Block
			block, data = pem.Decode(data)
			if block == nil {
				break
			}
			if block.Type != "CERTIFICATE" {
				continue
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("trustconfig: parsing trust anchor %s: %w", path, err)
			}
			anchors = append(anchors, cert)
		}
	}
	return anchors, nil
}

// Read loads and decodes the TOML configuration file at configfile. It
// exits the process on a missing file, matching the teacher package's
// fail-fast-on-startup behavior for a missing signing config.
func Read(configfile string) Config {
	if _, err := os.Stat(configfile); err != nil {
		log.Fatal("trustconfig: config file is missing: ", configfile)
	}

	var c Config
	if _, err := toml.DecodeFile(configfile, &c); err != nil {
		log.Fatal("trustconfig: failed to parse config file: ", err)
	}

	return c
}
