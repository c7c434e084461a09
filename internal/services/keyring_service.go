package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"notify-service/internal/config"
	"notify-service/internal/events"
	"notify-service/internal/models"
	"notify-service/internal/repository"
)

const rsaKeyBits = 2048

// encryptedPasswordMinBytes is the floor for treating a base64 payload as RSA
// ciphertext. A 2048-bit key always produces at least 256 ciphertext bytes;
// 128 gives headroom for shorter legacy keys while still rejecting plaintext
// passwords, which never decode that long.
const encryptedPasswordMinBytes = 128

// KeyringService manages the RSA keypairs used for client-side password
// encryption. The keypair rotates on a fixed interval; retired generations
// stay decryptable by key_id for a grace period so in-flight ciphertext
// produced just before a rotation still works.
type KeyringService struct {
	cfg      *config.Config
	keypairs *repository.KeypairRepository
	logger   *logrus.Entry

	mu sync.Mutex // serializes lazy create and rotation
}

// NewKeyringService creates a new keyring service
func NewKeyringService(cfg *config.Config, keypairs *repository.KeypairRepository, logger *logrus.Logger) *KeyringService {
	return &KeyringService{
		cfg:      cfg,
		keypairs: keypairs,
		logger:   logger.WithField("component", "keyring"),
	}
}

// ActiveKeypair returns the current keypair for password encryption, creating
// the first generation on demand and rotating when the current one has aged
// past the rotation interval.
func (s *KeyringService) ActiveKeypair(ctx context.Context) (*models.RSAKeypair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.keypairs.ActiveByName(ctx, models.AuthKeypairName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.rotateLocked(ctx)
		}
		return nil, fmt.Errorf("failed to load active keypair: %w", err)
	}

	if current.Age() > s.cfg.GetRotationInterval() {
		return s.rotateLocked(ctx)
	}

	return current, nil
}

// Rotate forces a new keypair generation regardless of the current one's age
func (s *KeyringService) Rotate(ctx context.Context) (*models.RSAKeypair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotateLocked(ctx)
}

func (s *KeyringService) rotateLocked(ctx context.Context) (*models.RSAKeypair, error) {
	private, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	now := time.Now()
	keypair := &models.RSAKeypair{
		Name: models.AuthKeypairName,
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "PRIVATE KEY",
			Bytes: privateDER,
		})),
		PublicKeyPEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: publicDER,
		})),
		IsActive:  true,
		RotatedAt: &now,
	}

	if err := s.keypairs.ReplaceActive(ctx, models.AuthKeypairName, keypair); err != nil {
		return nil, fmt.Errorf("failed to install new keypair: %w", err)
	}

	keyRotations.Inc()
	events.GetPublisher().PublishKeyRotated(ctx, keypair.KeyID)
	s.logger.WithField("key_id", keypair.KeyID).Info("Rotated RSA keypair")
	return keypair, nil
}

// PublicKey returns the active public key in PEM form together with its key_id,
// which clients echo back with ciphertext so decryption can find the right
// generation.
func (s *KeyringService) PublicKey(ctx context.Context) (*models.PublicKeyResponse, error) {
	keypair, err := s.ActiveKeypair(ctx)
	if err != nil {
		return nil, err
	}
	return &models.PublicKeyResponse{
		KeyID:        keypair.KeyID,
		PublicKeyPEM: keypair.PublicKeyPEM,
	}, nil
}

// DecryptPassword decrypts a base64 OAEP ciphertext. When keyID is non-nil the
// named generation is used, retired ones included as long as they are inside
// the grace period; otherwise the active keypair decrypts. Every failure mode
// collapses into the same RSADecryptionError so responses leak nothing about
// which stage broke.
func (s *KeyringService) DecryptPassword(ctx context.Context, ciphertext string, keyID *uuid.UUID) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &RSADecryptionError{cause: fmt.Errorf("invalid base64: %w", err)}
	}

	keypair, err := s.resolveKeypair(ctx, keyID)
	if err != nil {
		return "", &RSADecryptionError{cause: err}
	}

	private, err := parsePrivateKey(keypair.PrivateKeyPEM)
	if err != nil {
		return "", &RSADecryptionError{cause: err}
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, private, raw, nil)
	if err != nil {
		return "", &RSADecryptionError{cause: err}
	}

	return string(plaintext), nil
}

func (s *KeyringService) resolveKeypair(ctx context.Context, keyID *uuid.UUID) (*models.RSAKeypair, error) {
	if keyID == nil {
		return s.ActiveKeypair(ctx)
	}

	keypair, err := s.keypairs.GetByKeyID(ctx, *keyID)
	if err != nil {
		return nil, fmt.Errorf("unknown key_id %s: %w", keyID, err)
	}
	if !keypair.IsActive {
		if keypair.RetiredAt == nil || time.Since(*keypair.RetiredAt) > s.cfg.GetGracePeriod() {
			return nil, fmt.Errorf("key_id %s is retired beyond the grace period", keyID)
		}
	}
	return keypair, nil
}

// IsEncryptedPassword reports whether a credential looks like RSA ciphertext
// rather than a plaintext password. Valid base64 decoding to at least the
// ciphertext floor is treated as encrypted; everything else, decode errors
// included, is plaintext.
func IsEncryptedPassword(value string) bool {
	if value == "" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return false
	}
	return len(raw) >= encryptedPasswordMinBytes
}

// Deactivate retires a keypair immediately, outside the rotation schedule
func (s *KeyringService) Deactivate(ctx context.Context, keyID uuid.UUID) error {
	return s.keypairs.Deactivate(ctx, keyID)
}

func parsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
