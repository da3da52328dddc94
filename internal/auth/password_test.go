package auth

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func testCredential_HashVerify_Roundtrip(t *rapid.T) {
	password := rapid.StringN(1, 64, 128).Draw(t, "password")

	cred, err := NewCredential(password)
	if err != nil {
		t.Fatalf("NewCredential failed: %v", err)
	}

	if !cred.Verify(password) {
		t.Fatalf("Verify failed for the original password")
	}

	// A credential reconstructed from the persisted hash verifies identically.
	if !CredentialFromHash(cred.Hash()).Verify(password) {
		t.Fatal("CredentialFromHash(Hash()) should verify the original password")
	}
}

func TestCredential_HashVerify_Roundtrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCredential_HashVerify_Roundtrip)
}

func FuzzCredential_HashVerify_Roundtrip(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testCredential_HashVerify_Roundtrip))
}

func testCredential_WrongPassword_FailsVerify(t *rapid.T) {
	password1 := rapid.StringN(1, 32, 64).Draw(t, "password1")
	password2 := rapid.StringN(1, 32, 64).Filter(func(s string) bool {
		return s != password1
	}).Draw(t, "password2")

	cred, err := NewCredential(password1)
	if err != nil {
		t.Fatalf("NewCredential failed: %v", err)
	}

	if cred.Verify(password2) {
		t.Fatal("Verify should fail for a wrong password")
	}
}

func TestCredential_WrongPassword_FailsVerify(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCredential_WrongPassword_FailsVerify)
}

func FuzzCredential_WrongPassword_FailsVerify(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testCredential_WrongPassword_FailsVerify))
}

// Real Argon2 hashing must use a random salt: two hashes of the same
// password differ. Single call, not rapid.
func TestCredential_NonDeterministic(t *testing.T) {
	t.Parallel()
	cred1, err := NewCredential("test-password")
	if err != nil {
		t.Fatalf("first NewCredential failed: %v", err)
	}
	cred2, err := NewCredential("test-password")
	if err != nil {
		t.Fatalf("second NewCredential failed: %v", err)
	}
	if cred1.Hash() == cred2.Hash() {
		t.Fatal("hashing is deterministic - salt is not random")
	}
}

func TestCredential_EncodedFormat(t *testing.T) {
	t.Parallel()
	cred, err := NewCredential("test-password")
	if err != nil {
		t.Fatalf("NewCredential failed: %v", err)
	}
	if !strings.HasPrefix(cred.Hash(), "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", cred.Hash())
	}
}

func TestCredential_MalformedHashNeverVerifies(t *testing.T) {
	t.Parallel()
	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=19456,t=2,p=1$bad-salt$bad-hash",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$nonsense$c2FsdA$aGFzaA",
	} {
		if CredentialFromHash(hash).Verify("anything") {
			t.Fatalf("malformed hash %q should never verify", hash)
		}
	}
}
