package encoding

import (
	"bytes"
	"errors"
	"testing"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 0xFFFF)
	}
	in = append(in, 9, 300, 300, 300)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
	if _, err := DecodeRLE(enc, len(in)-1); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestPlanes(t *testing.T) {
	low := []byte{0, 1, 0xFF, 4}
	high := []byte{0, 0, 0xFF, 1}
	ids := JoinPlanes(low, high)
	if ids[2] != 0xFFFF || ids[3] != 260 {
		t.Fatalf("JoinPlanes=%v", ids)
	}
	l2, h2 := SplitPlanes(ids, true)
	if !bytes.Equal(l2, low) || !bytes.Equal(h2, high) {
		t.Fatalf("SplitPlanes mismatch")
	}
	l3, h3 := SplitPlanes(JoinPlanes(low, nil), false)
	if !bytes.Equal(l3, low) || h3 != nil {
		t.Fatalf("narrow planes mismatch")
	}
}
