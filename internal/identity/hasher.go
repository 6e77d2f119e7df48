// Package identity derives stable fingerprints for findings.
//
// A finding's identity is an HKDF-SHA256 digest over its location and
// secret bytes. The same secret at the same place always maps to the
// same ID, across scans and across restarts, which is what lets
// dismissals survive without ever persisting the secret itself.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"

	"github.com/secretlens/secretlens/internal/secmem"
)

// Size is the digest length in bytes. IDs are hex encoded, so the
// string form is twice this long.
const Size = 32

// Fixed HKDF parameters. Changing either invalidates every persisted
// dismissal, so they are frozen.
const (
	hkdfSalt = "secretlens/finding-identity/v1"
	hkdfInfo = "finding fingerprint"
)

// DeriveID fingerprints a secret at a location. Findings without file
// metadata pass an empty path and line 0. The separator layout
// "path:line:secret" keeps (path="a", line=11) and (path="a1", line=1)
// from colliding.
//
// The secret slice is read, never modified; the internal copy that
// feeds the KDF is zeroed before returning.
func DeriveID(filePath string, line int64, secret []byte) string {
	prefix := filePath + ":" + strconv.FormatInt(line, 10) + ":"

	ikm := make([]byte, 0, len(prefix)+len(secret))
	ikm = append(ikm, prefix...)
	ikm = append(ikm, secret...)
	defer secmem.Zero(ikm)

	reader := hkdf.New(sha256.New, ikm, []byte(hkdfSalt), []byte(hkdfInfo))
	digest := make([]byte, Size)
	if _, err := io.ReadFull(reader, digest); err != nil {
		// HKDF yields up to 255 hash blocks; one block cannot fail.
		panic(err)
	}

	return hex.EncodeToString(digest)
}
