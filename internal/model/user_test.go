package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{"full name", User{Email: "a@b.c", UserMetadata: map[string]any{"full_name": "Ada Lovelace", "name": "ada"}}, "Ada Lovelace"},
		{"name", User{Email: "a@b.c", UserMetadata: map[string]any{"name": "ada"}}, "ada"},
		{"user name", User{Email: "a@b.c", UserMetadata: map[string]any{"user_name": "ada-l"}}, "ada-l"},
		{"non-string metadata", User{Email: "a@b.c", UserMetadata: map[string]any{"full_name": 42}}, "a@b.c"},
		{"email fallback", User{Email: "a@b.c"}, "a@b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.DisplayName())
		})
	}
}

func TestUser_AvatarAndProvider(t *testing.T) {
	u := User{
		AppMetadata:  map[string]any{"provider": "google", "providers": []any{"google"}},
		UserMetadata: map[string]any{"picture": "https://img/p.png"},
	}
	assert.Equal(t, "https://img/p.png", u.AvatarURL())
	assert.Equal(t, "google", u.Provider())

	u.UserMetadata["avatar_url"] = "https://img/a.png"
	assert.Equal(t, "https://img/a.png", u.AvatarURL())

	assert.Empty(t, (&User{}).Provider())
}

func TestUser_DecodeGoTrue(t *testing.T) {
	payload := `{
		"id": "8d3f1c2e-1111-2222-3333-444455556666",
		"aud": "authenticated",
		"role": "authenticated",
		"email": "ada@example.com",
		"app_metadata": {"provider": "google"},
		"user_metadata": {"full_name": "Ada"},
		"created_at": "2024-05-01T10:00:00Z",
		"last_sign_in_at": "2024-05-02T10:00:00.123456Z"
	}`

	var u User
	require.NoError(t, json.Unmarshal([]byte(payload), &u))
	assert.Equal(t, "8d3f1c2e-1111-2222-3333-444455556666", u.ID)
	assert.Equal(t, "Ada", u.DisplayName())
	assert.Equal(t, 2024, u.CreatedAt.Year())
	require.NotNil(t, u.LastSignInAt)
	assert.Equal(t, 2, u.LastSignInAt.Day())
}
