package identity

import (
	"context"
	"time"

	"github.com/dzerik/campaign-portal/internal/config"
	"github.com/dzerik/campaign-portal/internal/model"
)

// DevProvider serves one fixed user without talking to any provider.
type DevProvider struct {
	user *model.User
}

// NewDevProvider creates a provider for development mode.
func NewDevProvider(cfg config.DevUserConfig) *DevProvider {
	return &DevProvider{user: &model.User{
		ID:           cfg.ID,
		Role:         "authenticated",
		Email:        cfg.Email,
		AppMetadata:  map[string]any{"provider": "dev"},
		UserMetadata: map[string]any{"full_name": cfg.Name},
		CreatedAt:    time.Unix(0, 0).UTC(),
	}}
}

// Name returns the provider name
func (p *DevProvider) Name() string {
	return "dev"
}

// AuthorizeURL sends the browser straight back.
func (p *DevProvider) AuthorizeURL(_, redirectTo string) string {
	return redirectTo
}

// GetUser returns the developer user for any token.
func (p *DevProvider) GetUser(context.Context, string) (*model.User, error) {
	return p.user, nil
}

// Logout is a no-op.
func (p *DevProvider) Logout(context.Context, string) error {
	return nil
}
