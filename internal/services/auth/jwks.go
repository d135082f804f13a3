package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized - missing required permissions")
	ErrJWKSFetch    = errors.New("failed to fetch JWKS")
)

// DefaultCacheTTL is how long fetched signing keys are trusted before the
// key set is fetched again
const DefaultCacheTTL = time.Hour

// JWK is one entry of a JSON Web Key Set. EC (ES256) and RSA (RS256) keys
// are understood; anything else is skipped.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS is a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// Service validates clinician JWTs against a remote key set
type Service struct {
	jwksURL    string
	httpClient *http.Client
	cacheTTL   time.Duration

	mu        sync.RWMutex
	keys      map[string]interface{}
	lastFetch time.Time

	devAuthEnabled bool
	devAuthToken   string
}

// NewService fetches the key set at jwksURL and returns a validator. A
// non-positive cacheTTL uses DefaultCacheTTL.
func NewService(jwksURL string, cacheTTL time.Duration) (*Service, error) {
	if jwksURL == "" {
		return nil, fmt.Errorf("JWKS URL is required")
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	service := &Service{
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheTTL:   cacheTTL,
		keys:       make(map[string]interface{}),
	}

	if err := service.fetchJWKS(); err != nil {
		return nil, fmt.Errorf("failed to fetch initial JWKS: %w", err)
	}
	return service, nil
}

// SetDevAuth enables a fixed bearer token that maps to an admin clinician
func (s *Service) SetDevAuth(enabled bool, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devAuthEnabled = enabled
	s.devAuthToken = token
	if enabled {
		log.Printf("[WARN] Development authentication is enabled")
	}
}

func (s *Service) fetchJWKS() error {
	resp, err := s.httpClient.Get(s.jwksURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: endpoint returned status %d", ErrJWKSFetch, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetch, err)
	}

	keys := make(map[string]interface{}, len(jwks.Keys))
	for _, jwk := range jwks.Keys {
		key, err := parseKey(jwk)
		if err != nil {
			log.Printf("[DEBUG] Skipping JWK %s: %v", jwk.Kid, err)
			continue
		}
		keys[jwk.Kid] = key
	}

	s.mu.Lock()
	s.keys = keys
	s.lastFetch = time.Now()
	s.mu.Unlock()
	return nil
}

func parseKey(jwk JWK) (interface{}, error) {
	switch {
	case jwk.Kty == "EC" && (jwk.Alg == "" || jwk.Alg == "ES256"):
		x, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			return nil, fmt.Errorf("bad x coordinate: %w", err)
		}
		y, err := base64.RawURLEncoding.DecodeString(jwk.Y)
		if err != nil {
			return nil, fmt.Errorf("bad y coordinate: %w", err)
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}, nil
	case jwk.Kty == "RSA" && (jwk.Alg == "" || jwk.Alg == "RS256"):
		n, err := base64.RawURLEncoding.DecodeString(jwk.N)
		if err != nil {
			return nil, fmt.Errorf("bad modulus: %w", err)
		}
		e, err := base64.RawURLEncoding.DecodeString(jwk.E)
		if err != nil {
			return nil, fmt.Errorf("bad exponent: %w", err)
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %s/%s", jwk.Kty, jwk.Alg)
	}
}

// publicKey returns the key for kid, refetching the set when the kid is
// unknown or the cache has aged out
func (s *Service) publicKey(kid string) (interface{}, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	stale := time.Since(s.lastFetch) > s.cacheTTL
	s.mu.RUnlock()

	if !ok || stale {
		if err := s.fetchJWKS(); err != nil {
			return nil, err
		}
		s.mu.RLock()
		key, ok = s.keys[kid]
		s.mu.RUnlock()
	}
	if !ok {
		return nil, fmt.Errorf("key with id %s not found", kid)
	}
	return key, nil
}

// ValidateToken verifies the signature and expiry of tokenString and
// requires at least one scribe permission
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	s.mu.RLock()
	devEnabled, devToken := s.devAuthEnabled, s.devAuthToken
	s.mu.RUnlock()
	if devEnabled && devToken != "" &&
		subtle.ConstantTimeCompare([]byte(tokenString), []byte(devToken)) == 1 {
		return s.GetDevClaims(), nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodECDSA, *jwt.SigningMethodRSA:
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("no kid found in token header")
		}
		return s.publicKey(kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	// Only clinicians provisioned with a scribe permission get in
	if !claims.HasAnyPermission(AllPermissions...) {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// GetDevClaims returns the admin clinician used in development mode
func (s *Service) GetDevClaims() *Claims {
	now := time.Now()
	return &Claims{
		Sub:   "dev-clinician-001",
		Email: "dev@scribe.local",
		Role:  "authenticated",
		AppMetadata: AppMetadata{
			Permissions: []string{PermissionRecord, PermissionNotes, PermissionAdmin},
			Role:        "admin",
			ClinicID:    "dev-clinic",
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(365 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
}
