package authutil

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword("hunter2hunter2", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"abc123xy", true},
		{"short1", false},
		{"allletters", false},
		{"12345678", false},
		{"", false},
	}
	for _, tc := range tests {
		err := ValidatePassword(tc.password)
		if tc.valid && err != nil {
			t.Errorf("ValidatePassword(%q) = %v, want nil", tc.password, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("ValidatePassword(%q) = nil, want error", tc.password)
		}
	}
}
