package security

import "testing"

// Scenario from spec.md §8.4: outgoing security, level 5 (ENC-MIC-32), a
// zero key, extended source 00..07, frame counter 1, plaintext "hi".
func TestEncryptOutgoingThenDecryptIncomingRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	src := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	plaintext := []byte("hi")
	aad := []byte{0x61, 0x88, 0x01} // stand-in MHR bytes (frame-control+seq)

	nonce, err := BuildNonceNonTSCH(src, 1, LevelENCMIC32)
	if err != nil {
		t.Fatalf("BuildNonceNonTSCH: %v", err)
	}

	out, err := EncryptOutgoing(key, nonce, aad, plaintext, LevelENCMIC32)
	if err != nil {
		t.Fatalf("EncryptOutgoing: %v", err)
	}
	if len(out) != len(plaintext)+4 {
		t.Fatalf("unexpected output length %d", len(out))
	}
	if string(out[:len(plaintext)]) == string(plaintext) {
		t.Error("ciphertext should differ from plaintext for an encrypting level")
	}

	plain, err := DecryptIncoming(key, nonce, aad, out, LevelENCMIC32)
	if err != nil {
		t.Fatalf("DecryptIncoming: %v", err)
	}
	if string(plain) != "hi" {
		t.Fatalf("decrypted = %q, want %q", plain, "hi")
	}
}

func TestEncryptOutgoingRejectsReservedLevels(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, NonceSize)
	for _, l := range []Level{LevelNone, levelReserved} {
		if _, err := EncryptOutgoing(key, nonce, nil, []byte("x"), l); err != ErrReservedLevel {
			t.Errorf("level %d: err = %v, want ErrReservedLevel", l, err)
		}
	}
}

func TestDecryptIncomingDetectsTamperedAAD(t *testing.T) {
	key := make([]byte, 16)
	src := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	nonce, _ := BuildNonceNonTSCH(src, 1, LevelMIC64)
	aad := []byte{0x41, 0x88, 0x01}

	out, err := EncryptOutgoing(key, nonce, aad, []byte("payload"), LevelMIC64)
	if err != nil {
		t.Fatalf("EncryptOutgoing: %v", err)
	}

	tamperedAAD := append([]byte{}, aad...)
	tamperedAAD[0] ^= 0x80
	if _, err := DecryptIncoming(key, nonce, tamperedAAD, out, LevelMIC64); err != ErrAuthFailed {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
}
