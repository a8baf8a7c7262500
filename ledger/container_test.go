package ledger

import "testing"

func TestDeriveContainerAddressIsDeterministic(t *testing.T) {
	caller := [32]byte{1, 2, 3}
	a := DeriveContainerAddress(caller, "ns")
	b := DeriveContainerAddress(caller, "ns")
	if a != b {
		t.Fatalf("expected deterministic derivation, got %x vs %x", a, b)
	}
}

func TestDeriveContainerAddressDependsOnNamespace(t *testing.T) {
	caller := [32]byte{1, 2, 3}
	a := DeriveContainerAddress(caller, "ns-one")
	b := DeriveContainerAddress(caller, "ns-two")
	if a == b {
		t.Fatalf("expected different namespaces to derive different addresses")
	}
}

func TestDeriveContainerAddressDependsOnCaller(t *testing.T) {
	a := DeriveContainerAddress([32]byte{1}, "ns")
	b := DeriveContainerAddress([32]byte{2}, "ns")
	if a == b {
		t.Fatalf("expected different callers to derive different addresses")
	}
}

func TestContainerIDResolve(t *testing.T) {
	pubkey := [32]byte{9, 9, 9}
	if got := FromPubkey(pubkey).Resolve(); got != pubkey {
		t.Fatalf("FromPubkey should resolve to the raw pubkey, got %x", got)
	}

	caller := [32]byte{1, 2, 3}
	derived := FromNamespace(caller, "ns")
	want := DeriveContainerAddress(caller, "ns")
	if got := derived.Resolve(); got != want {
		t.Fatalf("FromNamespace should resolve via DeriveContainerAddress, got %x want %x", got, want)
	}
}
