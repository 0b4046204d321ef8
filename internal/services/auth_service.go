package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"jsonplaceholder/internal/models"
	"jsonplaceholder/internal/repositories"
	"jsonplaceholder/pkg/rabbitmq"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password, so callers cannot enumerate registered addresses.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserRecordMissing signals a credential whose linked user profile no
	// longer exists. It indicates internal inconsistency and should be
	// unreachable in normal operation.
	ErrUserRecordMissing = errors.New("user record missing for credential")
)

// AuthService handles registration, login and token issuance/verification.
type AuthService struct {
	authUserRepo repositories.AuthUserRepository
	txManager    repositories.TxManager
	mqClient     *rabbitmq.Client // optional, nil disables event publishing
	jwtSecret    []byte
	tokenDurat   time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService. The signing secret is injected
// once at startup; it is never read from process-wide state.
func NewAuthService(authUserRepo repositories.AuthUserRepository, txManager repositories.TxManager, mqClient *rabbitmq.Client, jwtSecret string) *AuthService {
	return &AuthService{
		authUserRepo: authUserRepo,
		txManager:    txManager,
		mqClient:     mqClient,
		jwtSecret:    []byte(jwtSecret),
		tokenDurat:   24 * time.Hour, // Token valid for 24 hours
	}
}

// Register creates a user profile and its credential in one transaction, then
// verifies the submitted password through the same path login uses and
// returns a token for the new credential. A pre-existing email fails with
// repositories.ErrDuplicateEmail without mutating state; the unique index on
// auth_users.email closes the check-then-act race, rolling back the profile
// so no orphan survives.
func (s *AuthService) Register(name, username, email, password string) (*models.JwtResponse, error) {
	exists, err := s.authUserRepo.ExistsByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("auth user with email %s: %w", email, repositories.ErrDuplicateEmail)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var authUserID uint
	err = s.txManager.Do(func(users repositories.UserRepository, authUsers repositories.AuthUserRepository) error {
		user := &models.User{Name: name, Username: username, Email: email}
		if err := users.Create(user); err != nil {
			return err
		}

		authUser := &models.AuthUser{
			Name:         name,
			Email:        email,
			PasswordHash: string(hashedPassword),
			UserID:       user.ID,
		}
		if err := authUsers.Create(authUser); err != nil {
			return err
		}
		authUserID = authUser.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Same verification path as login, so a credential that cannot
	// authenticate never receives a token.
	resp, err := s.Login(email, password)
	if err != nil {
		return nil, err
	}

	s.publishEvent("user.registered", map[string]interface{}{
		"authUserID": authUserID,
		"email":      email,
	})

	return resp, nil
}

// Login authenticates a credential by email and password and returns a token
// with the credential's identity. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(email, password string) (*models.JwtResponse, error) {
	authUser, err := s.authUserRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(authUser.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if authUser.User.ID == 0 {
		return nil, fmt.Errorf("credential %d references user %d: %w", authUser.ID, authUser.UserID, ErrUserRecordMissing)
	}

	token, err := s.generateToken(authUser)
	if err != nil {
		return nil, err
	}

	return &models.JwtResponse{
		Token: token,
		Type:  "Bearer",
		User: models.UserInfo{
			ID:       authUser.ID,
			Name:     authUser.Name,
			Username: authUser.User.Username,
			Email:    authUser.Email,
		},
	}, nil
}

// generateToken issues a signed JWT carrying the credential identity.
func (s *AuthService) generateToken(authUser *models.AuthUser) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": authUser.ID,
		"email":   authUser.Email,
		"exp":     time.Now().Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":     time.Now().Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// publishEvent marshals payload and publishes it as eventType. Publishing is
// best-effort: failures are logged, never surfaced to the caller.
func (s *AuthService) publishEvent(eventType string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", eventType, err)
		return
	}
	if err := s.mqClient.Publish(eventType, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", eventType, err)
	}
}
