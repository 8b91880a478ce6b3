package authz

import (
	"crypto/md5" //nolint:gosec // integrity check against a signed claim, not a security boundary
	"encoding/hex"
)

// DigestAlgorithm is the only checksum algorithm token issuers may use.
const DigestAlgorithm = "md5"

// Digest returns the lowercase hex checksum of data.
func Digest(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
