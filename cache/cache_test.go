package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

// TestCacheKey_Validation tests key validation rules.
func TestCacheKey_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"valid key", "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "key\nwith\nnewlines", ErrInvalidKey},
		{"contains carriage return", "key\rwith\rreturns", ErrInvalidKey},
		{"contains slash", "a/b", ErrInvalidKey},
		{"contains backslash", "a\\b", ErrInvalidKey},
		{"path traversal", "..secret", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateKey(%q) = %v, want nil", tt.key, err)
				}
			} else {
				if err != tt.wantErr {
					t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
				}
			}
		})
	}
}

// TestCacheInterface_CompileCheck verifies the Cache interface contract.
// This is a compile-time check enforced by implementing a mock.
func TestCacheInterface_CompileCheck(t *testing.T) {
	var _ Cache = (*mockCache)(nil)
}

// mockCache is a test double that implements Cache interface.
type mockCache struct{}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool) {
	return nil, false
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockCache) Clear(ctx context.Context, expiredOnly bool) (int, error) {
	return 0, nil
}
