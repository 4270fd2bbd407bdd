package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dinehq/maitred/internal/domain"
)

const apiKeyPrefix = "mtd_"

type TenantRepository interface {
	Create(ctx context.Context, t *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByName(ctx context.Context, name string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	Update(ctx context.Context, t *domain.Tenant) error
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type AuthService struct {
	tenantRepo TenantRepository
	keyRepo    APIKeyRepository
	uuidGen    UUIDGenerator
}

func NewAuthService(tenantRepo TenantRepository, keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		tenantRepo: tenantRepo,
		keyRepo:    keyRepo,
		uuidGen:    uuidGen,
	}
}

func (s *AuthService) CreateTenant(ctx context.Context, name string, taxRate float64) (*domain.Tenant, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant name is required")
	}

	tenant := domain.NewTenant(s.uuidGen.NewString(), name, taxRate, time.Now().UTC())

	if err := domain.ValidateTenant(tenant); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid tenant", err)
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	return tenant, nil
}

func (s *AuthService) CreateAPIKey(ctx context.Context, tenantID, name string) (string, error) {
	if tenantID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	_, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return "", err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   hashToken(token),
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid api key", err)
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", err
	}

	return token, nil
}

// CreateAPIKeyWithToken registers a caller-supplied token, used by the
// bootstrap path so a known key can be provisioned from the environment.
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, tenantID, name, token string) error {
	if tenantID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected mtd_<64 hex chars>)")
	}

	_, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   hashToken(token),
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid api key", err)
	}

	return s.keyRepo.Create(ctx, key)
}

// ValidateAPIKey returns the tenant ID the token authenticates for.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return "", domain.ErrInvalidAPIKey
		}
		return "", err
	}

	if key.IsRevoked() {
		return "", domain.ErrAPIKeyRevoked
	}

	return key.TenantID, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	return s.keyRepo.GetByTenantID(ctx, tenantID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}
