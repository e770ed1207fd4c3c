package usecase

import (
	"errors"
	"strings"
	"testing"
	"time"

	authdomain "broadrange-backend/internal/auth/domain"
	authdto "broadrange-backend/internal/auth/dto"
	"broadrange-backend/pkg/config"

	"github.com/google/uuid"
)

type memUsers struct {
	users   map[string]*authdomain.User
	refresh map[string]*authdomain.RefreshToken
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*authdomain.User{}, refresh: map[string]*authdomain.RefreshToken{}}
}

func (m *memUsers) Create(user *authdomain.User) error {
	user.ID = uuid.New().String()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUsers) FindByEmail(email string) (*authdomain.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(id string) (*authdomain.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) Update(user *authdomain.User) error {
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUsers) SaveRefreshToken(token *authdomain.RefreshToken) error {
	m.refresh[token.Token] = token
	return nil
}

func (m *memUsers) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	return m.refresh[token], nil
}

func (m *memUsers) DeleteRefreshToken(token string) error {
	delete(m.refresh, token)
	return nil
}

func (m *memUsers) DeleteRefreshTokensByUser(userID string) error {
	for k, v := range m.refresh {
		if v.UserID == userID {
			delete(m.refresh, k)
		}
	}
	return nil
}

type memDevices struct {
	tokens map[string]string // token -> user
}

func (m *memDevices) SaveToken(userID, token, deviceInfo string) error {
	m.tokens[token] = userID
	return nil
}

func (m *memDevices) GetTokensByUserID(userID string) ([]authdomain.DeviceToken, error) {
	var out []authdomain.DeviceToken
	for tok, uid := range m.tokens {
		if uid == userID {
			out = append(out, authdomain.DeviceToken{UserID: uid, Token: tok})
		}
	}
	return out, nil
}

func (m *memDevices) DeleteToken(userID, token string) error {
	if m.tokens[token] == userID {
		delete(m.tokens, token)
	}
	return nil
}

func (m *memDevices) DeleteTokens(tokens []string) error {
	for _, t := range tokens {
		delete(m.tokens, t)
	}
	return nil
}

func newTestAuth() (AuthUsecase, *memUsers, *memDevices) {
	users := newMemUsers()
	devices := &memDevices{tokens: map[string]string{}}
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
	return NewAuthUsecase(users, devices, cfg), users, devices
}

func register(t *testing.T, uc AuthUsecase) *authdto.TokenResponse {
	t.Helper()
	resp, err := uc.Register(&authdto.RegisterRequest{Email: "Ana@Example.com", Password: "secret123", Name: "Ana"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	uc, _, _ := newTestAuth()
	resp := register(t, uc)
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("missing tokens")
	}
	if resp.User.Email != "ana@example.com" || !resp.User.EmailNotifications {
		t.Errorf("user = %+v", resp.User)
	}

	if _, err := uc.Register(&authdto.RegisterRequest{Email: "ana@example.com", Password: "x123456", Name: "A"}); !errors.Is(err, authdomain.ErrEmailTaken) {
		t.Errorf("duplicate: err = %v", err)
	}

	if _, err := uc.Login(&authdto.LoginRequest{Email: "ana@example.com", Password: "wrong-pass"}); !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := uc.Login(&authdto.LoginRequest{Email: "nobody@example.com", Password: "secret123"}); !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v", err)
	}
	if _, err := uc.Login(&authdto.LoginRequest{Email: "ana@example.com", Password: "secret123"}); err != nil {
		t.Errorf("login: %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	uc, _, _ := newTestAuth()
	resp := register(t, uc)

	user, err := uc.ValidateToken(resp.AccessToken)
	if err != nil || user.ID != resp.User.ID {
		t.Fatalf("ValidateToken = %v, %v", user, err)
	}

	if _, err := uc.ValidateToken(resp.RefreshToken); !errors.Is(err, authdomain.ErrInvalidToken) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
	if _, err := uc.ValidateToken("garbage"); !errors.Is(err, authdomain.ErrInvalidToken) {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	uc, users, _ := newTestAuth()
	resp := register(t, uc)

	next, err := uc.RefreshToken(resp.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if next.RefreshToken == resp.RefreshToken {
		t.Error("refresh token not rotated")
	}
	if _, ok := users.refresh[resp.RefreshToken]; ok {
		t.Error("old refresh token still stored")
	}
	if _, err := uc.RefreshToken(resp.RefreshToken); !errors.Is(err, authdomain.ErrInvalidToken) {
		t.Errorf("reused token: err = %v", err)
	}

	if err := uc.Logout(next.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.RefreshToken(next.RefreshToken); !errors.Is(err, authdomain.ErrInvalidToken) {
		t.Errorf("after logout: err = %v", err)
	}
}

func TestUpdatePreferences(t *testing.T) {
	uc, _, _ := newTestAuth()
	resp := register(t, uc)

	off := false
	tz := "Europe/Berlin"
	user, err := uc.UpdatePreferences(resp.User.ID, &authdto.PreferencesRequest{EmailNotifications: &off, Timezone: &tz})
	if err != nil {
		t.Fatal(err)
	}
	if user.EmailNotifications || !user.PushNotifications || user.Timezone != tz {
		t.Errorf("user = %+v", user)
	}

	bad := "Mars/Olympus"
	if _, err := uc.UpdatePreferences(resp.User.ID, &authdto.PreferencesRequest{Timezone: &bad}); err == nil {
		t.Error("unknown timezone accepted")
	}
}

func TestDeviceTokens(t *testing.T) {
	uc, _, devices := newTestAuth()
	if err := uc.RegisterDeviceToken("u1", &authdto.DeviceTokenRequest{Token: " tok-1 "}); err != nil {
		t.Fatal(err)
	}
	if devices.tokens["tok-1"] != "u1" {
		t.Errorf("tokens = %v", devices.tokens)
	}
	if err := uc.UnregisterDeviceToken("u2", "tok-1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := devices.tokens["tok-1"]; !ok {
		t.Error("another user removed the token")
	}
	if err := uc.UnregisterDeviceToken("u1", "tok-1"); err != nil {
		t.Fatal(err)
	}
	if len(devices.tokens) != 0 {
		t.Errorf("tokens = %v", devices.tokens)
	}
}
