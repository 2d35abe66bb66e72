// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("XYZ"),
		{0x00, 0xff, 0x10, 0x80},
		bytes.Repeat([]byte{0xAB}, 128),
	}
	random := make([]byte, 256)
	if _, err := rand.Read(random); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	inputs = append(inputs, random)

	for _, in := range inputs {
		enc := Encode(FromBytes(in))
		out, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", enc, err)
		}
		if !bytes.Equal(out.Bytes(), in) {
			t.Fatalf("round trip mismatch for %d bytes", len(in))
		}
	}
}

func TestEncodeIsPaddedStdBase64(t *testing.T) {
	if got := Encode(FromString("XYZ")); got != "WFla" {
		t.Fatalf("Encode(XYZ) = %q, want WFla", got)
	}
	if got := Encode(FromString("XY")); got != "WFk=" {
		t.Fatalf("Encode(XY) = %q, want WFk=", got)
	}
}

func TestDecodeToleratesLineBreaks(t *testing.T) {
	out, err := Decode("WFla\n")
	if err != nil {
		t.Fatalf("Decode with trailing newline failed: %v", err)
	}
	if string(out.Bytes()) != "XYZ" {
		t.Fatalf("unexpected decode result %q", out.Bytes())
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(""); !errors.Is(err, ErrEmptyEncoding) {
		t.Fatalf("expected ErrEmptyEncoding, got %v", err)
	}
	if _, err := Decode("not*base64"); err == nil {
		t.Fatalf("expected error for invalid input")
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(FromString("XYZ"))
	b := Fingerprint(FromString("XYZ"))
	c := Fingerprint(FromString("XYW"))
	if a != b {
		t.Fatalf("fingerprint not deterministic")
	}
	if a == c {
		t.Fatalf("distinct secrets share a fingerprint")
	}
	if len(a) != 24 {
		t.Fatalf("fingerprint length = %d, want 24", len(a))
	}
}
