package repository

import (
	"errors"
	"strings"
	"time"

	authdomain "broadrange-backend/internal/auth/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// gormUserRepository keeps accounts and their refresh sessions in postgres.
type gormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// profileColumns are the user fields a preferences update may change.
var profileColumns = []string{"name", "password", "timezone", "email_notifications", "push_notifications", "updated_at"}

// takeOne loads the single row matching column = value. A missing row is
// (nil, nil) so callers can tell "absent" from a query failure.
func takeOne[T any](db *gorm.DB, column string, value interface{}) (*T, error) {
	var row T
	err := db.Where(column+" = ?", value).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &row, nil
}

// Emails are stored lower-cased so lookups ignore case.
func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *gormUserRepository) Create(user *authdomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = canonicalEmail(user.Email)
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	return r.db.Create(user).Error
}

func (r *gormUserRepository) FindByEmail(email string) (*authdomain.User, error) {
	return takeOne[authdomain.User](r.db, "email", canonicalEmail(email))
}

func (r *gormUserRepository) FindByID(id string) (*authdomain.User, error) {
	return takeOne[authdomain.User](r.db, "id", id)
}

// Update writes the profile columns only. Email and creation time are fixed
// once the account exists.
func (r *gormUserRepository) Update(user *authdomain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.Model(user).Select(profileColumns).Updates(user).Error
}

// SaveRefreshToken adds a session for one more device and prunes the
// user's expired sessions in the same transaction.
func (r *gormUserRepository) SaveRefreshToken(token *authdomain.RefreshToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		expired := tx.Where("user_id = ? AND expires_at < ?", token.UserID, time.Now())
		if err := expired.Delete(&authdomain.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

func (r *gormUserRepository) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	return takeOne[authdomain.RefreshToken](r.db, "token", token)
}

func (r *gormUserRepository) DeleteRefreshToken(token string) error {
	return r.db.Delete(&authdomain.RefreshToken{}, "token = ?", token).Error
}

func (r *gormUserRepository) DeleteRefreshTokensByUser(userID string) error {
	return r.db.Delete(&authdomain.RefreshToken{}, "user_id = ?", userID).Error
}

// HashPassword returns the bcrypt hash stored in users.password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
