// Package checksum computes artifact integrity digests.
package checksum

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is the digest downstream consumers verify, not a security boundary
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Digests holds the hex encoded digests of one artifact.
type Digests struct {
	SHA1   string `json:"sha1"`
	BLAKE3 string `json:"blake3"`
	Size   int64  `json:"size"`
}

// SHA1 returns the hex SHA-1 of data.
func SHA1(data []byte) string {
	return fmt.Sprintf("%x", sha1.Sum(data)) //nolint:gosec
}

// Sum hashes everything read from r with SHA-1 and BLAKE3 in a single pass.
func Sum(r io.Reader) (Digests, error) {
	s1 := sha1.New() //nolint:gosec
	b3 := blake3.New()

	n, err := io.Copy(io.MultiWriter(s1, b3), r)
	if err != nil {
		return Digests{}, fmt.Errorf("hash content: %w", err)
	}

	return Digests{
		SHA1:   fmt.Sprintf("%x", s1.Sum(nil)),
		BLAKE3: fmt.Sprintf("%x", b3.Sum(nil)),
		Size:   n,
	}, nil
}
