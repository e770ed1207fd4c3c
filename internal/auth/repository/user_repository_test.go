package repository

import (
	"slices"
	"testing"
)

func TestCanonicalEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ana@Example.com", "ana@example.com"},
		{"  bo@example.com\n", "bo@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := canonicalEmail(tt.in); got != tt.want {
			t.Errorf("canonicalEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "secret123" {
		t.Fatal("password stored in clear")
	}
	if !CheckPasswordHash("secret123", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("secret124", hash) || CheckPasswordHash("secret123", "not-a-hash") {
		t.Error("wrong password or hash accepted")
	}
}

func TestProfileColumnsLeaveIdentityAlone(t *testing.T) {
	for _, fixed := range []string{"id", "email", "created_at"} {
		if slices.Contains(profileColumns, fixed) {
			t.Errorf("Update would overwrite %s", fixed)
		}
	}
	if !slices.Contains(profileColumns, "timezone") || !slices.Contains(profileColumns, "updated_at") {
		t.Errorf("profileColumns = %v", profileColumns)
	}
}
