package recovery

import "testing"

func TestChunksInOrder(t *testing.T) {
	byIndex := map[uint16][]byte{
		2: []byte("c"),
		0: []byte("a"),
		1: []byte("b"),
	}
	order := []uint16{0, 1, 2}
	got := chunksInOrder(byIndex, order)
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if string(got[i]) != w {
			t.Fatalf("index %d: got %q want %q", i, got[i], w)
		}
	}
}

func TestErrDeclareNotFoundMessage(t *testing.T) {
	err := &ErrDeclareNotFound{BlobID: 5}
	if err.Error() == "" {
		t.Fatalf("expected non-empty error message")
	}
}

func TestErrMultipleDeclaresMessage(t *testing.T) {
	err := &ErrMultipleDeclares{BlobID: 5, Count: 2}
	if err.Error() == "" {
		t.Fatalf("expected non-empty error message")
	}
}
