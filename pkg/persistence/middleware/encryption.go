package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
)

// envelopePrefix marks an encrypted record. The ciphertext travels in the
// interpretation summary; everything else about the reading is blanked.
const envelopePrefix = "enc:v1:"

// ErrNotEncrypted is returned when a record lacks an encryption envelope.
var ErrNotEncrypted = errors.New("record is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables key rotation without rewriting the journal.
	FallbackKeys [][]byte

	// Logger reports records skipped while listing.
	Logger *slog.Logger
}

// sealed is the plaintext protected by the envelope.
type sealed struct {
	Runes          []domain.SelectedRune `json:"runes"`
	Interpretation domain.Interpretation `json:"interpretation"`
}

type encryptionMiddleware struct {
	next   ports.HistoryStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the journal text
// of every record using AES-GCM. ID, creation time and spread stay readable so
// the backing store can still order and prune.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256), got %d", i, len(k))
		}
	}
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

// ParseKey decodes a 32-byte key given as 64 hex characters or as base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) == 64 {
		if k, err := hex.DecodeString(s); err == nil {
			return k, nil
		}
	}
	k, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key is neither hex nor base64: %w", err)
	}
	if len(k) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(k))
	}
	return k, nil
}

func (m *encryptionMiddleware) Append(ctx context.Context, record domain.ReadingRecord) error {
	plainText, err := json.Marshal(sealed{Runes: record.Runes, Interpretation: record.Interpretation})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt record: %w", err)
	}

	envelope := domain.ReadingRecord{
		ID:        record.ID,
		CreatedAt: record.CreatedAt,
		Spread:    record.Spread,
		Interpretation: domain.Interpretation{
			Summary: envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext),
		},
	}
	return m.next.Append(ctx, envelope)
}

func (m *encryptionMiddleware) Get(ctx context.Context, id string) (domain.ReadingRecord, error) {
	envelope, err := m.next.Get(ctx, id)
	if err != nil {
		return domain.ReadingRecord{}, err
	}
	return m.open(envelope)
}

// List skips records that can't be decrypted rather than failing the journal.
func (m *encryptionMiddleware) List(ctx context.Context) ([]domain.ReadingRecord, error) {
	envelopes, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReadingRecord, 0, len(envelopes))
	for _, env := range envelopes {
		rec, err := m.open(env)
		if err != nil {
			m.config.Logger.Warn("skipping undecryptable record", "id", env.ID, "err", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	return m.next.Prune(ctx, cutoff)
}

func (m *encryptionMiddleware) open(envelope domain.ReadingRecord) (domain.ReadingRecord, error) {
	encoded, ok := strings.CutPrefix(envelope.Interpretation.Summary, envelopePrefix)
	if !ok {
		return domain.ReadingRecord{}, ErrNotEncrypted
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("failed to decrypt record: %w", err)
	}

	var inner sealed
	if err := json.Unmarshal(plainText, &inner); err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("failed to unmarshal decrypted record: %w", err)
	}

	return domain.ReadingRecord{
		ID:             envelope.ID,
		CreatedAt:      envelope.CreatedAt,
		Spread:         envelope.Spread,
		Runes:          inner.Runes,
		Interpretation: inner.Interpretation,
	}, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
