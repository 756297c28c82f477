package auth

import (
	"context"
	stderrors "errors"
	"testing"

	apperrors "github.com/dpshade/prompt-composer/internal/errors"
)

func TestStatic(t *testing.T) {
	id, err := NewStatic("local").Authenticate(context.Background(), "")
	if err != nil || id != "local" {
		t.Errorf("Expected local, got %q (%v)", id, err)
	}

	_, err = NewStatic(" ").Authenticate(context.Background(), "tok")
	if !stderrors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("Expected unauthorized, got %v", err)
	}
}

func TestSupabaseAuthenticate(t *testing.T) {
	a := NewSupabaseWithLookup(func(token string) (string, error) {
		if token == "good" {
			return "user-1", nil
		}
		return "", stderrors.New("401")
	})

	id, err := a.Authenticate(context.Background(), "good")
	if err != nil || id != "user-1" {
		t.Errorf("Expected user-1, got %q (%v)", id, err)
	}

	_, err = a.Authenticate(context.Background(), "bad")
	if apperrors.GetAppError(err).Code != apperrors.ErrCodeInvalidToken {
		t.Errorf("Expected INVALID_TOKEN, got %v", err)
	}

	_, err = a.Authenticate(context.Background(), "")
	if !stderrors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("Expected unauthorized for missing token, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q): expected (%q, %v), got (%q, %v)", tt.header, tt.token, tt.ok, token, ok)
		}
	}
}
