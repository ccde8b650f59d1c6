package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"spay-platform/config"
	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT.
// Access, refresh and temporary tokens each sign with their own secret and
// carry the same claim set: sub, email, device_id, token_epoch.
type JWTTokenService struct {
	cfg config.JWTConfig
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(cfg config.JWTConfig) *JWTTokenService {
	return &JWTTokenService{cfg: cfg}
}

func (s *JWTTokenService) secretFor(class ports.TokenClass) ([]byte, error) {
	switch class {
	case ports.TokenClassAccess:
		return []byte(s.cfg.AccessSecret), nil
	case ports.TokenClassRefresh:
		return []byte(s.cfg.RefreshSecret), nil
	case ports.TokenClassTemp:
		return []byte(s.cfg.TempSecret), nil
	default:
		return nil, fmt.Errorf("unknown token class: %s", class)
	}
}

func (s *JWTTokenService) expiryFor(class ports.TokenClass) time.Duration {
	switch class {
	case ports.TokenClassRefresh:
		return s.cfg.RefreshExpiry
	case ports.TokenClassTemp:
		return s.cfg.TempExpiry
	default:
		return s.cfg.AccessExpiry
	}
}

func (s *JWTTokenService) mint(user *domain.User, deviceID string, class ports.TokenClass) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiryFor(class))

	claims := jwt.MapClaims{
		"sub":         user.ID.String(),
		"email":       user.Email,
		"device_id":   deviceID,
		"token_epoch": user.TokenEpoch,
		"iat":         now.Unix(),
		"exp":         expiresAt.Unix(),
		"iss":         s.cfg.Issuer,
	}

	secret, err := s.secretFor(class)
	if err != nil {
		return "", time.Time{}, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", class, err)
	}

	return tokenString, expiresAt, nil
}

// Generate mints the full token triple for a user on a device.
func (s *JWTTokenService) Generate(user *domain.User, deviceID string) (*ports.TokenTriple, error) {
	access, accessExp, err := s.mint(user, deviceID, ports.TokenClassAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.mint(user, deviceID, ports.TokenClassRefresh)
	if err != nil {
		return nil, err
	}
	temp, _, err := s.mint(user, deviceID, ports.TokenClassTemp)
	if err != nil {
		return nil, err
	}

	return &ports.TokenTriple{
		AccessToken:   access,
		RefreshToken:  refresh,
		TempToken:     temp,
		AccessExpiry:  accessExp,
		RefreshExpiry: refreshExp,
	}, nil
}

// Validate parses and validates a token against the secret for its class.
// A token signed for a different class fails here because the secrets differ.
func (s *JWTTokenService) Validate(tokenString string, class ports.TokenClass) (*ports.TokenClaims, error) {
	secret, err := s.secretFor(class)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}

	email, _ := claims["email"].(string)
	deviceID, _ := claims["device_id"].(string)

	var epoch int64
	if v, ok := claims["token_epoch"].(float64); ok {
		epoch = int64(v)
	}

	return &ports.TokenClaims{
		UserID:     userID,
		Email:      email,
		DeviceID:   deviceID,
		TokenEpoch: epoch,
	}, nil
}

// DeviceID derives a stable identifier from the client device signature.
// Two logins from the same browser map to the same ID, so rotation replaces
// rather than accumulates refresh fingerprints.
func (s *JWTTokenService) DeviceID(deviceSignature string) string {
	sum := sha256.Sum256([]byte(deviceSignature))
	return hex.EncodeToString(sum[:])[:16]
}
