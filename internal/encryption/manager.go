package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/favourolaoye/boride-v3-api/internal/config"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// localKeyID marks a field sealed directly with the local master key instead
// of a KMS data key.
const localKeyID = "local"

// EncryptedField is a sealed value plus the reference needed to unseal it.
// For KMS-backed fields KeyID carries the base64 encrypted data key; for
// local fields it is the "local" marker.
type EncryptedField struct {
	Ciphertext []byte
	KeyID      string
}

// Manager seals contact fields at rest. With KMS enabled each value gets an
// envelope data key; otherwise a local AES-256-GCM master key is used
// (development and tests).
type Manager struct {
	kmsClient *kms.Client
	cfg       *config.Config
	masterKey []byte
	dekCache  sync.Map // base64 encrypted DEK -> plaintext DEK
}

func NewManager(cfg *config.Config, kmsClient *kms.Client) (*Manager, error) {
	m := &Manager{
		kmsClient: kmsClient,
		cfg:       cfg,
	}

	if !cfg.KMS.Enabled {
		key, err := loadLocalKey(cfg.KMS.LocalMasterKey)
		if err != nil {
			return nil, err
		}
		m.masterKey = key
	}

	return m, nil
}

func loadLocalKey(encoded string) ([]byte, error) {
	if encoded == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate local master key: %w", err)
		}
		return key, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("LOCAL_MASTER_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("LOCAL_MASTER_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// EncryptField seals a plaintext value for storage.
func (m *Manager) EncryptField(ctx context.Context, plaintext string) (*EncryptedField, error) {
	if !m.cfg.KMS.Enabled {
		sealed, err := seal(m.masterKey, []byte(plaintext))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
		}
		return &EncryptedField{Ciphertext: sealed, KeyID: localKeyID}, nil
	}

	out, err := m.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(m.cfg.KMS.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	sealed, err := seal(out.Plaintext, []byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	keyID := base64.StdEncoding.EncodeToString(out.CiphertextBlob)
	m.dekCache.Store(keyID, out.Plaintext)

	return &EncryptedField{Ciphertext: sealed, KeyID: keyID}, nil
}

// DecryptField unseals a stored value.
func (m *Manager) DecryptField(ctx context.Context, field *EncryptedField) (string, error) {
	if field == nil || len(field.Ciphertext) == 0 {
		return "", nil
	}

	if field.KeyID == localKeyID {
		plaintext, err := open(m.masterKey, field.Ciphertext)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
		return string(plaintext), nil
	}

	dek, err := m.resolveDEK(ctx, field.KeyID)
	if err != nil {
		return "", err
	}

	plaintext, err := open(dek, field.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

func (m *Manager) resolveDEK(ctx context.Context, keyID string) ([]byte, error) {
	if cached, ok := m.dekCache.Load(keyID); ok {
		return cached.([]byte), nil
	}

	blob, err := base64.StdEncoding.DecodeString(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad key reference", ErrDecryptionFailed)
	}

	out, err := m.kmsClient.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data key: %w", err)
	}

	m.dekCache.Store(keyID, out.Plaintext)
	return out.Plaintext, nil
}

// ClearCache drops all cached plaintext data keys.
func (m *Manager) ClearCache() {
	m.dekCache.Range(func(key, _ interface{}) bool {
		m.dekCache.Delete(key)
		return true
	})
}

func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
