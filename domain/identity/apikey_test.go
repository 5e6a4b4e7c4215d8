package identity

import "testing"

func TestGenerateAPIKey_Unique(t *testing.T) {
	k1, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	k2, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}

	if k1.Plaintext == k2.Plaintext {
		t.Error("expected distinct plaintext keys")
	}
	if string(k1.Salt) == string(k2.Salt) {
		t.Error("expected distinct salts")
	}
}

func TestVerifyAPIKey_CorrectAndWrong(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}

	tenant := &Tenant{
		ID:         "tenant-1",
		APIKeySalt: key.Salt,
		APIKeyHash: key.Hash,
	}

	if !VerifyAPIKey(tenant, key.Plaintext) {
		t.Error("expected correct plaintext to verify")
	}
	if VerifyAPIKey(tenant, key.Plaintext+"x") {
		t.Error("expected tampered plaintext to fail verification")
	}
	if VerifyAPIKey(tenant, "") {
		t.Error("expected empty candidate to fail verification")
	}
}

func TestVerifyAPIKey_NilOrUnset(t *testing.T) {
	if VerifyAPIKey(nil, "anything") {
		t.Error("expected nil tenant to fail verification")
	}
	if VerifyAPIKey(&Tenant{}, "anything") {
		t.Error("expected tenant with no key set to fail verification")
	}
}

func TestVerifyAPIKey_RegeneratePrevHashRetired(t *testing.T) {
	key1, _ := GenerateAPIKey()
	tenant := &Tenant{ID: "tenant-1", APIKeySalt: key1.Salt, APIKeyHash: key1.Hash}

	if !VerifyAPIKey(tenant, key1.Plaintext) {
		t.Fatal("expected first key to verify before regeneration")
	}

	key2, _ := GenerateAPIKey()
	tenant.APIKeySalt = key2.Salt
	tenant.APIKeyHash = key2.Hash

	if VerifyAPIKey(tenant, key1.Plaintext) {
		t.Error("expected retired key to no longer verify")
	}
	if !VerifyAPIKey(tenant, key2.Plaintext) {
		t.Error("expected new key to verify")
	}
}
