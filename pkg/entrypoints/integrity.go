package entrypoints

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"
)

// HashAlgorithm selects the subresource integrity digest. The zero value
// disables hashing.
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
	SHA384 HashAlgorithm = "sha384"
	SHA512 HashAlgorithm = "sha512"
)

// ParseHashAlgorithm returns the algorithm named s. Unsupported names
// disable hashing rather than failing.
func ParseHashAlgorithm(s string) HashAlgorithm {
	switch a := HashAlgorithm(s); a {
	case SHA256, SHA384, SHA512:
		return a
	}
	return ""
}

// Enabled reports whether a supported algorithm is selected.
func (a HashAlgorithm) Enabled() bool {
	return a.newHash() != nil
}

func (a HashAlgorithm) newHash() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	}
	return nil
}

// Digest returns "<alg>-<base64 digest>" for data, or "" when hashing is
// disabled.
func (a HashAlgorithm) Digest(data []byte) string {
	h := a.newHash()
	if h == nil {
		return ""
	}
	h.Write(data)
	return string(a) + "-" + base64.StdEncoding.EncodeToString(h.Sum(nil))
}
