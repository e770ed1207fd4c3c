package usecase

import (
	authdomain "broadrange-backend/internal/auth/domain"
	authdto "broadrange-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for authentication business logic
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	// RefreshToken exchanges a refresh token for a new pair; the old one is revoked
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	// ValidateToken resolves an access token to its user
	ValidateToken(token string) (*authdomain.User, error)

	UpdatePreferences(userID string, req *authdto.PreferencesRequest) (*authdomain.User, error)
	RegisterDeviceToken(userID string, req *authdto.DeviceTokenRequest) error
	UnregisterDeviceToken(userID, token string) error
}
