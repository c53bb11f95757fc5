package trust

// AddDefaultTrustLinkerConfig installs the default revocation linker chain
// on v: OCSP first, then CRL as a fallback. Callers build the linkers
// themselves (via the ocsplinker and crllinker packages, wired to their
// chosen repositories and algorithm policy) and pass them in here; trust
// itself stays free of a dependency on either package so the two can each
// depend on trust without an import cycle.
func AddDefaultTrustLinkerConfig(v *TrustValidator, ocspLinker, crlLinker TrustLinker) {
	v.AddTrustLinker(ocspLinker)
	v.AddTrustLinker(crlLinker)
}
