package credentials_test

import (
	"testing"

	"github.com/tinyopds/tinyopds/internal/credentials"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	table := credentials.ParsePlain("alice:s3cret;bob:hunter2")
	blob, err := credentials.Encrypt(table, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := credentials.Decrypt(blob, key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !got.Check("alice", "s3cret") {
		t.Error("expected alice:s3cret to check out")
	}
	if !got.Check("bob", "hunter2") {
		t.Error("expected bob:hunter2 to check out")
	}
	if got.Check("alice", "wrong") {
		t.Error("wrong password unexpectedly checked out")
	}
}

func TestDecryptEmptyBlob(t *testing.T) {
	key := make([]byte, 32)
	got, err := credentials.Decrypt("", key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !got.Empty() {
		t.Error("expected empty table for empty blob")
	}
}
