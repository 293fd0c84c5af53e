package model

import "time"

// User represents an authenticated user as reported by the identity provider
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Role         string         `json:"role,omitempty"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
}

// DisplayName returns the best available display name
func (u *User) DisplayName() string {
	for _, key := range []string{"full_name", "name", "user_name", "preferred_username"} {
		if v := u.Metadata(key); v != "" {
			return v
		}
	}
	return u.Email
}

// AvatarURL returns the avatar published by the social provider, if any
func (u *User) AvatarURL() string {
	if v := u.Metadata("avatar_url"); v != "" {
		return v
	}
	return u.Metadata("picture")
}

// Provider returns the provider the user last signed in with
func (u *User) Provider() string {
	if v, ok := u.AppMetadata["provider"].(string); ok {
		return v
	}
	return ""
}

// Metadata returns a user metadata value as string
func (u *User) Metadata(key string) string {
	v, ok := u.UserMetadata[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
