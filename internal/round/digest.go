package round

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefix for trace digests. The version suffix leaves room for an
// algorithm migration without ambiguity between old and new digests.
const digestDomain = "cartridge/trace/v1"

// TraceDigest computes a content-addressed digest of a fact stream:
// SHA-256 over the domain prefix, a null separator and the canonical trace
// bytes. Two streams have the same digest exactly when FormatTrace renders
// them identically, so a journaled instance can be checked against a fresh
// deterministic run.
func TraceDigest(facts []Fact) (string, error) {
	trace, err := FormatTrace(facts)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(digestDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(trace))
	return hex.EncodeToString(h.Sum(nil)), nil
}
