package encoding

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compression names accepted by connector options
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// EncodeAll and DecodeAll are safe for concurrent use on a shared coder
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// ParseCompression validates a compression option value
func ParseCompression(s string) (string, error) {
	switch c := strings.ToLower(strings.TrimSpace(s)); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported compression %q", s)
	}
}

// Compress zstd-encodes data
func Compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)))
}

// Decompress reverses Compress
func Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	return out, nil
}
