package crypto

import "testing"

func TestGenerateSignVerify(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pub := priv.PubKey()

	msg := []byte("transfer 10 SOL")
	sig := priv.Sign(msg)
	if !pub.Verify(msg, sig) {
		t.Fatalf("expected signature to verify")
	}
	if pub.Verify([]byte("tampered"), sig) {
		t.Fatalf("expected verification to fail for a different message")
	}
}

func TestAddressRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := priv.PubKey().Address()
	if addr.IsZero() {
		t.Fatalf("expected populated address")
	}

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.String() != addr.String() {
		t.Fatalf("round trip mismatch: %s != %s", decoded.String(), addr.String())
	}
}

func TestPrivateKeyFromBytesRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	restored, err := PrivateKeyFromBytes(priv.Bytes())
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	if restored.PubKey().Address().String() != priv.PubKey().Address().String() {
		t.Fatalf("restored key produced a different address")
	}
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	if _, err := NewAddress([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for undersized address bytes")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-valid-base58!!"); err == nil {
		t.Fatalf("expected error for invalid base58 input")
	}
}
