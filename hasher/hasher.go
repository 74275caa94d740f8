// Package hasher names the inner hash families the digest protocol can
// run on. The protocol only needs a deterministic byte-oriented sink
// with a fixed-length digest; any hash.Hash qualifies.
package hasher

import (
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Factory produces fresh, independent hasher instances.
type Factory func() hash.Hash

// SHA3_256 is the default family used across tests and tools.
func SHA3_256() hash.Hash { return sha3.New256() }

// SHA3_512 is the wide SHA3 variant.
func SHA3_512() hash.Hash { return sha3.New512() }

// Blake3 is a fast cryptographic alternative.
func Blake3() hash.Hash { return blake3.New() }

// XXH64 is non-cryptographic; use it only for cheap change detection,
// never where collision resistance matters.
func XXH64() hash.Hash { return xxhash.New() }

// ByName resolves a family from its CLI/config spelling.
func ByName(name string) (Factory, error) {
	switch name {
	case "sha3-256":
		return SHA3_256, nil
	case "sha3-512":
		return SHA3_512, nil
	case "blake3":
		return Blake3, nil
	case "xxh64":
		return XXH64, nil
	}
	return nil, fmt.Errorf("unknown hash family %q", name)
}
