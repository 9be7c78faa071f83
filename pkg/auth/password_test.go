package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		shouldFail    bool
		errorContains string
	}{
		{
			name:       "valid strong password",
			password:   "SikkertPassord123",
			shouldFail: false,
		},
		{
			name:          "too short",
			password:      "Kort1",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "missing uppercase",
			password:      "sikkertpassord123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "missing lowercase",
			password:      "SIKKERTPASSORD123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "missing digit",
			password:      "SikkertPassordAbc",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "common password rejected",
			password:      "password123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "common norwegian password rejected",
			password:      "Norge123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:       "valid with symbols",
			password:   "MyP@ssw0rd!",
			shouldFail: false,
		},
		{
			name:          "too long",
			password:      "A" + strings.Repeat("a", 150) + "1",
			shouldFail:    true,
			errorContains: "invalid password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.shouldFail {
				if err == nil {
					t.Errorf("expected error, got nil")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error message should contain '%s', got: %v", tt.errorContains, err)
				}
			} else {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
			}
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SikkertPassord123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "" {
		t.Error("hash should not be empty")
	}

	if hash == password {
		t.Error("hash should not equal plaintext password")
	}

	err = ComparePassword(hash, password)
	if err != nil {
		t.Errorf("ComparePassword with correct password failed: %v", err)
	}

	err = ComparePassword(hash, "FeilPassord999")
	if err == nil {
		t.Error("ComparePassword with wrong password should fail")
	}
}

func TestGenerateTokenKey(t *testing.T) {
	first, err := GenerateTokenKey()
	if err != nil {
		t.Fatalf("GenerateTokenKey failed: %v", err)
	}
	if first == "" {
		t.Error("token key should not be empty")
	}

	second, err := GenerateTokenKey()
	if err != nil {
		t.Fatalf("GenerateTokenKey failed: %v", err)
	}
	if first == second {
		t.Error("consecutive token keys should differ")
	}
}
