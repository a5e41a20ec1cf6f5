package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum: got %s, want %s", got, want)
	}
}

func TestShort(t *testing.T) {
	got := Short([]byte("abc"))
	if len(got) != 16 {
		t.Fatalf("Short: got %d chars, want 16", len(got))
	}
	if got != Sum([]byte("abc"))[:16] {
		t.Errorf("Short is not a prefix of Sum")
	}
	if Short([]byte("abc")) == Short([]byte("abd")) {
		t.Error("different content produced the same short hash")
	}
}
