// Package encoding packs section planes for the wire.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrTooLong = errors.New("encoding: decoded run exceeds limit")

// EncodeRLE encodes voxel ids as base64 of (id, run_len) uvarint pairs.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(ids); {
		id := ids[i]
		run := 1
		for i+run < len(ids) && ids[i+run] == id {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(id))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. Output longer than limit is rejected.
func DecodeRLE(b64 string, limit int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		id, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if id > 0xFFFF {
			return nil, fmt.Errorf("voxel id too large: %d", id)
		}
		if run > uint64(limit-len(out)) {
			return nil, fmt.Errorf("%w: %d", ErrTooLong, limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(id))
		}
	}
	return out, nil
}

// JoinPlanes combines a low plane and an optional high plane into ids.
func JoinPlanes(low, high []byte) []uint16 {
	ids := make([]uint16, len(low))
	for i, lo := range low {
		ids[i] = uint16(lo)
		if high != nil {
			ids[i] |= uint16(high[i]) << 8
		}
	}
	return ids
}

// SplitPlanes is the inverse of JoinPlanes. high is nil unless wide is set.
func SplitPlanes(ids []uint16, wide bool) (low, high []byte) {
	low = make([]byte, len(ids))
	if wide {
		high = make([]byte, len(ids))
	}
	for i, id := range ids {
		low[i] = byte(id)
		if wide {
			high[i] = byte(id >> 8)
		}
	}
	return low, high
}
