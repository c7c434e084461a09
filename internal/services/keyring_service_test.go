package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-service/internal/models"
	"notify-service/internal/repository"
)

func newKeyringFixture(t *testing.T) *KeyringService {
	t.Helper()
	db := newServiceTestDB(t)
	return NewKeyringService(newTestConfig(), repository.NewKeypairRepository(db), newTestLogger())
}

func encryptWithPublicPEM(t *testing.T, publicPEM, plaintext string) string {
	t.Helper()

	block, _ := pem.Decode([]byte(publicPEM))
	require.NotNil(t, block)

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	publicKey, ok := parsed.(*rsa.PublicKey)
	require.True(t, ok)

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, []byte(plaintext), nil)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(ciphertext)
}

func TestActiveKeypairIsStableWithinRotationInterval(t *testing.T) {
	s := newKeyringFixture(t)
	ctx := context.Background()

	first, err := s.ActiveKeypair(ctx)
	require.NoError(t, err)

	second, err := s.ActiveKeypair(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.KeyID, second.KeyID)
	assert.Equal(t, first.PublicKeyPEM, second.PublicKeyPEM)
}

func TestRotateRetiresPreviousGeneration(t *testing.T) {
	s := newKeyringFixture(t)
	ctx := context.Background()

	first, err := s.ActiveKeypair(ctx)
	require.NoError(t, err)

	second, err := s.Rotate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.KeyID, second.KeyID)

	active, err := s.ActiveKeypair(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.KeyID, active.KeyID)

	retired, err := s.keypairs.GetByKeyID(ctx, first.KeyID)
	require.NoError(t, err)
	assert.False(t, retired.IsActive)
	assert.NotNil(t, retired.RetiredAt)
}

func TestKeypairPEMEncodings(t *testing.T) {
	s := newKeyringFixture(t)

	keypair, err := s.ActiveKeypair(context.Background())
	require.NoError(t, err)

	privBlock, _ := pem.Decode([]byte(keypair.PrivateKeyPEM))
	require.NotNil(t, privBlock)
	assert.Equal(t, "PRIVATE KEY", privBlock.Type)
	_, err = x509.ParsePKCS8PrivateKey(privBlock.Bytes)
	assert.NoError(t, err)

	pubBlock, _ := pem.Decode([]byte(keypair.PublicKeyPEM))
	require.NotNil(t, pubBlock)
	assert.Equal(t, "PUBLIC KEY", pubBlock.Type)
	parsed, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	require.NoError(t, err)
	publicKey, ok := parsed.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, rsaKeyBits, publicKey.N.BitLen())
}

func TestDecryptPasswordRoundTrip(t *testing.T) {
	s := newKeyringFixture(t)
	ctx := context.Background()

	keypair, err := s.ActiveKeypair(ctx)
	require.NoError(t, err)

	ciphertext := encryptWithPublicPEM(t, keypair.PublicKeyPEM, "s3cret-pa55word")

	plaintext, err := s.DecryptPassword(ctx, ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pa55word", plaintext)

	plaintext, err = s.DecryptPassword(ctx, ciphertext, &keypair.KeyID)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pa55word", plaintext)
}

func TestDecryptWithRetiredKeyInsideGracePeriod(t *testing.T) {
	s := newKeyringFixture(t)
	ctx := context.Background()

	old, err := s.ActiveKeypair(ctx)
	require.NoError(t, err)
	ciphertext := encryptWithPublicPEM(t, old.PublicKeyPEM, "pre-rotation")

	_, err = s.Rotate(ctx)
	require.NoError(t, err)

	// The active key can no longer decrypt it, the retired one still can.
	_, err = s.DecryptPassword(ctx, ciphertext, nil)
	assert.Error(t, err)

	plaintext, err := s.DecryptPassword(ctx, ciphertext, &old.KeyID)
	require.NoError(t, err)
	assert.Equal(t, "pre-rotation", plaintext)
}

func TestDecryptWithKeyRetiredBeyondGracePeriod(t *testing.T) {
	db := newServiceTestDB(t)
	repo := repository.NewKeypairRepository(db)
	s := NewKeyringService(newTestConfig(), repo, newTestLogger())
	ctx := context.Background()

	old, err := s.ActiveKeypair(ctx)
	require.NoError(t, err)
	ciphertext := encryptWithPublicPEM(t, old.PublicKeyPEM, "too-late")

	_, err = s.Rotate(ctx)
	require.NoError(t, err)

	longAgo := time.Now().Add(-72 * time.Hour)
	require.NoError(t, db.Model(&models.RSAKeypair{}).
		Where("key_id = ?", old.KeyID).
		Update("retired_at", longAgo).Error)

	_, err = s.DecryptPassword(ctx, ciphertext, &old.KeyID)
	require.Error(t, err)

	var decErr *RSADecryptionError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecryptFailuresAreUniform(t *testing.T) {
	s := newKeyringFixture(t)
	ctx := context.Background()

	var decErr *RSADecryptionError

	// Malformed base64.
	_, err := s.DecryptPassword(ctx, "not base64 at all!!", nil)
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "failed to decrypt password", err.Error())

	// Valid base64, garbage ciphertext.
	garbage := base64.StdEncoding.EncodeToString(make([]byte, 256))
	_, err = s.DecryptPassword(ctx, garbage, nil)
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "failed to decrypt password", err.Error())
}

func TestIsEncryptedPassword(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"empty", "", false},
		{"plain password", "hunter2", false},
		{"not base64", "!!!not-base64!!!", false},
		{"short base64", base64.StdEncoding.EncodeToString(make([]byte, 64)), false},
		{"floor length", base64.StdEncoding.EncodeToString(make([]byte, 128)), true},
		{"rsa sized", base64.StdEncoding.EncodeToString(make([]byte, 256)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEncryptedPassword(tt.value))
		})
	}
}

func TestIsEncryptedPasswordOnRealCiphertext(t *testing.T) {
	s := newKeyringFixture(t)

	keypair, err := s.ActiveKeypair(context.Background())
	require.NoError(t, err)

	ciphertext := encryptWithPublicPEM(t, keypair.PublicKeyPEM, "anything")
	assert.True(t, IsEncryptedPassword(ciphertext))
}
