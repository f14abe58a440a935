package library

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the compression algorithm used for snapshot bodies.
type Compression uint8

const (
	// CompressionNone indicates no compression.
	CompressionNone Compression = 0
	// CompressionLZ4 indicates LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block layout: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means the data is stored uncompressed (compression
// did not help or CompressionNone was requested).
const blockHeaderSize = 8

// compressBlock compresses data using the requested algorithm. The stored
// form falls back to uncompressed when compression does not shrink it.
func compressBlock(data []byte, compression Compression) ([]byte, error) {
	var compressed []byte

	switch compression {
	case CompressionNone:
		// fall through to uncompressed framing
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n > 0 && n < len(data) {
			compressed = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		buf := enc.EncodeAll(data, make([]byte, 0, len(data)))
		putZstdEncoder(enc)
		if len(buf) < len(data) {
			compressed = buf
		}
	default:
		return nil, fmt.Errorf("unknown compression type %d", compression)
	}

	out := make([]byte, blockHeaderSize, blockHeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(data)))
	if compressed == nil {
		binary.LittleEndian.PutUint32(out[4:8], 0)
		return append(out, data...), nil
	}
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(compressed)))
	return append(out, compressed...), nil
}

// decompressBlock reverses compressBlock.
func decompressBlock(block []byte, compression Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, errors.New("snapshot block truncated")
	}
	uncompressedSize := binary.LittleEndian.Uint32(block[0:4])
	compressedSize := binary.LittleEndian.Uint32(block[4:8])
	payload := block[blockHeaderSize:]

	if compressedSize == 0 {
		if uint32(len(payload)) != uncompressedSize {
			return nil, fmt.Errorf("snapshot block size mismatch: header %d, payload %d", uncompressedSize, len(payload))
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}
	if uint32(len(payload)) != compressedSize {
		return nil, fmt.Errorf("snapshot block size mismatch: header %d, payload %d", compressedSize, len(payload))
	}

	switch compression {
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", n, uncompressedSize)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		putZstdDecoder(dec)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compressed block with compression type %d", compression)
	}
}
