package uvtt

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes the raw file bytes into a stable hex digest. Stored
// alongside imported maps, it lets later loads detect that a map's geometry
// changed since fog and portal state were saved.
func Fingerprint(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
