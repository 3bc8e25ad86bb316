package network

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zeebo/blake3"
)

// List of different checksum strategies.
const (
	ChecksumSHA256  = "sha256"
	ChecksumBLAKE3  = "blake3"
	ChecksumRolling = "rolling"
)

// ChecksumFunc computes the checksum stored with a shard.
type ChecksumFunc func(data []byte) string

// Map of different checksum strategies with functions.
var checksums = map[string]ChecksumFunc{
	ChecksumSHA256:  sha256Checksum,
	ChecksumBLAKE3:  blake3Checksum,
	ChecksumRolling: rollingChecksum,
}

// RetrieveChecksum returns the specified checksum strategy function.
func RetrieveChecksum(strategy string) (ChecksumFunc, error) {
	fn, exists := checksums[strategy]
	if !exists {
		return nil, fmt.Errorf("checksum strategy %q does not exist", strategy)
	}
	return fn, nil
}

// sha256Checksum is the default strategy.
func sha256Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hexutil.Encode(sum[:])
}

func blake3Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hexutil.Encode(sum[:])
}

// rollingChecksum is the 32-bit shift-and-subtract hash used by the first
// shard format. It only catches accidental corruption.
func rollingChecksum(data []byte) string {
	var hash int32
	for _, b := range data {
		hash = (hash << 5) - hash + int32(b)
	}
	return strconv.FormatInt(int64(hash), 16)
}
