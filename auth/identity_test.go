package auth

import (
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
)

func TestIdentityFromToken(t *testing.T) {
	tests := []struct {
		name     string
		token    *fbauth.Token
		expected Identity
		wantErr  bool
	}{
		{
			name:    "nil token",
			token:   nil,
			wantErr: true,
		},
		{
			name:    "empty uid",
			token:   &fbauth.Token{},
			wantErr: true,
		},
		{
			name: "uid only",
			token: &fbauth.Token{
				UID:    "u1",
				Claims: map[string]any{},
			},
			expected: Identity{UID: "u1"},
		},
		{
			name: "full claims",
			token: &fbauth.Token{
				UID: "u1",
				Claims: map[string]any{
					"name":    "Alice",
					"email":   "alice@example.com",
					"picture": "https://example.com/a.png",
				},
			},
			expected: Identity{
				UID:         "u1",
				DisplayName: "Alice",
				Email:       "alice@example.com",
				PhotoURL:    "https://example.com/a.png",
			},
		},
		{
			name: "non-string claims ignored",
			token: &fbauth.Token{
				UID: "u1",
				Claims: map[string]any{
					"name":  42,
					"email": true,
				},
			},
			expected: Identity{UID: "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := IdentityFromToken(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, id)
			}
		})
	}
}
