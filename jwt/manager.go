package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AudienceAccess marks a token usable for API authorization.
	AudienceAccess = "naimat:access"

	// AudienceRefresh marks a token usable only to mint new access tokens.
	AudienceRefresh = "naimat:refresh"
)

// Config carries the per-class secrets and lifetimes. Secrets must differ;
// the Manager refuses to start otherwise.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Claims is the claim set of both token classes: registered claims only,
// with the user id as subject and the class as audience.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and validates both token classes. Safe for concurrent use.
type Manager struct {
	config Config
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess signs an access token with userID as subject.
func (m *Manager) CreateAccess(userID string) (string, error) {
	return m.create(userID, AudienceAccess, m.config.AccessTTL, m.config.AccessSecret)
}

// CreateRefresh signs a refresh token with userID as subject.
func (m *Manager) CreateRefresh(userID string) (string, error) {
	return m.create(userID, AudienceRefresh, m.config.RefreshTTL, m.config.RefreshSecret)
}

// ParseAccess verifies tokenStr against the access secret and class, and
// returns the subject user id.
func (m *Manager) ParseAccess(tokenStr string) (string, error) {
	return m.parse(tokenStr, AudienceAccess, m.config.AccessSecret)
}

// ParseRefresh verifies tokenStr against the refresh secret and class, and
// returns the subject user id.
func (m *Manager) ParseRefresh(tokenStr string) (string, error) {
	return m.parse(tokenStr, AudienceRefresh, m.config.RefreshSecret)
}

func (m *Manager) create(userID, audience string, ttl time.Duration, secret []byte) (string, error) {
	if userID == "" {
		return "", errors.New("empty token subject")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *Manager) parse(tokenStr, audience string, secret []byte) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}

	return claims.Subject, nil
}
