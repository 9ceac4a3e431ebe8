package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Compression method bytes leading every stored value
const (
	MethodNone byte = 0x00
	MethodLZ4  byte = 0x01
)

var (
	errShortValue  = errors.New("stored value is truncated")
	errCorruptSize = errors.New("stored value size exceeds what its payload can hold")
)

// maxLZ4Ratio bounds how far an LZ4 block can expand
const maxLZ4Ratio = 255

// encodeValue compresses src with LZ4 and frames it as
// method byte, uvarint uncompressed size, payload. Input LZ4 cannot shrink
// is stored uncompressed.
func encodeValue(src []byte) ([]byte, error) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	n := binary.PutUvarint(header[1:], uint64(len(src)))
	header = header[:1+n]

	if len(src) > 0 {
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		size, err := lz4.CompressBlock(src, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if size > 0 && size < len(src) {
			header[0] = MethodLZ4
			return append(header, dst[:size]...), nil
		}
	}

	header[0] = MethodNone
	return append(header, src...), nil
}

// decodeValue reverses encodeValue
func decodeValue(value []byte) ([]byte, error) {
	if len(value) < 2 {
		return nil, errShortValue
	}
	method := value[0]
	size, n := binary.Uvarint(value[1:])
	if n <= 0 {
		return nil, errShortValue
	}
	payload := value[1+n:]

	switch method {
	case MethodNone:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("stored value: expected %d bytes, got %d", size, len(payload))
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case MethodLZ4:
		if size > uint64(len(payload))*maxLZ4Ratio {
			return nil, errCorruptSize
		}
		dst := make([]byte, size)
		got, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(got) != size {
			return nil, fmt.Errorf("lz4 decompress: expected %d bytes, got %d", size, got)
		}
		return dst, nil

	default:
		return nil, fmt.Errorf("unknown compression method 0x%02x", method)
	}
}
