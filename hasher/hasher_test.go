package hasher

import (
	"bytes"
	"testing"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"sha3-256", "sha3-512", "blake3", "xxh64"} {
		f, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		h := f()
		if _, err := h.Write([]byte("tablehash")); err != nil {
			t.Fatalf("%s: write failed: %v", name, err)
		}
		if got := h.Sum(nil); len(got) != h.Size() {
			t.Errorf("%s: digest has %d bytes, Size() says %d", name, len(got), h.Size())
		}
	}

	if _, err := ByName("md5"); err == nil {
		t.Error("expected error for unknown family")
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := SHA3_256(), SHA3_256()
	a.Write([]byte("left"))
	b.Write([]byte("right"))
	if bytes.Equal(a.Sum(nil), b.Sum(nil)) {
		t.Error("distinct inputs produced identical digests")
	}
}
