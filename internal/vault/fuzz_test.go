package vault

import (
	"errors"
	"testing"
)

// FuzzDetect feeds arbitrary documents to the format detector.
func FuzzDetect(f *testing.F) {
	f.Add([]byte(plainDoc))
	f.Add([]byte(`{"iv":"AAAAAAAAAAAAAAAA","store":"AAAAAAAAAAAAAAAAAAAAAA=="}`))
	f.Add([]byte(`{"settings":null,"entries":{}}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, raw []byte) {
		if len(raw) > 1<<16 {
			t.Skip("input too large")
		}

		doc, err := Detect(raw)
		if err != nil {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Fatalf("Detect error %v does not match ErrUnknownFormat", err)
			}
			return
		}

		plain, ok := doc.(*PlainDocument)
		if !ok {
			return
		}

		// A parsed vault must survive a round trip unchanged.
		data, err := MarshalPlain(plain.Vault)
		if err != nil {
			t.Fatalf("MarshalPlain failed: %v", err)
		}
		again, err := Parse(data)
		if err != nil {
			t.Fatalf("re-parse failed: %v", err)
		}
		if len(again.Entries) != len(plain.Vault.Entries) {
			t.Fatalf("entry count changed from %d to %d", len(plain.Vault.Entries), len(again.Entries))
		}
	})
}

// FuzzDecryptMalformed checks that fuzzed envelopes only ever fail with
// one of the envelope errors.
func FuzzDecryptMalformed(f *testing.F) {
	f.Add("not base64", "AAAA")
	f.Add("AAAA", "AAAA")
	f.Add("AAAAAAAAAAAAAAAA", "AAAA")
	f.Add("AAAAAAAAAAAAAAAA", "%%%")

	f.Fuzz(func(t *testing.T, iv, store string) {
		_, err := Decrypt(&Envelope{IV: iv, Store: store}, "pw")
		if err == nil {
			t.Fatal("Decrypt accepted a fuzzed envelope")
		}
		if !errors.Is(err, ErrInvalidEncoding) && !errors.Is(err, ErrInternal) && !errors.Is(err, ErrWrongPassword) {
			t.Fatalf("unexpected error class: %v", err)
		}
	})
}

func BenchmarkDeriveKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		key, err := DeriveKey("benchmark-passphrase")
		if err != nil {
			b.Fatal(err)
		}
		_ = key
	}
}

func BenchmarkDetectPlaintext(b *testing.B) {
	raw := []byte(plainDoc)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := Detect(raw); err != nil {
			b.Fatal(err)
		}
	}
}
