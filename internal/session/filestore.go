package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"transforma/internal/jsonfield"
	"transforma/internal/logging"
)

const keyFileName = ".session.key"

// Option customises FileStore construction.
type Option func(*FileStore)

// WithUsername overrides the OS username used for the token filename.
func WithUsername(name string) Option {
	return func(s *FileStore) {
		s.username = name
	}
}

// FileStore keeps one encrypted token file per OS user under a session
// directory. The sealing key lives in a 0600 sibling file created on first
// save; file modes are the access control, matching what the host platform
// gives a single-user install.
type FileStore struct {
	dir      string
	username string
	logger   *slog.Logger
}

// NewFileStore builds a FileStore rooted at dir.
func NewFileStore(dir string, logger *slog.Logger, opts ...Option) *FileStore {
	s := &FileStore{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.username == "" {
		s.username = currentUsername()
	}
	return s
}

// Load reads and validates the stored session. Failures are classified
// into the Error field; Load itself never returns a Go error.
func (s *FileStore) Load() Info {
	var info Info

	path, err := s.tokenPath()
	if err != nil {
		info.Error = "Cannot determine token path"
		return info
	}

	encrypted, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			info.Error = "No session found (not logged in)"
		} else {
			info.Error = "Cannot read session file"
		}
		return info
	}
	if len(encrypted) == 0 {
		info.Error = "Empty session file"
		return info
	}

	blob, err := s.unseal(encrypted)
	if err != nil {
		info.Error = "Failed to decrypt session (wrong user or corrupted)"
		return info
	}

	info.Username, _ = jsonfield.String(blob, "username")
	info.Token, _ = jsonfield.String(blob, "token")
	info.ExpiresAt, _ = jsonfield.String(blob, "expires_at")
	info.UserID, _ = jsonfield.String(blob, "user_id")

	if info.Token == "" {
		info.Error = "Invalid session data (no token)"
		return info
	}
	if isExpired(info.ExpiresAt) {
		info.Error = "Session expired"
		return info
	}

	info.Valid = true
	return info
}

// Save seals the session and writes it for the current user.
func (s *FileStore) Save(info Info) error {
	path, err := s.tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	blob, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	sealed, err := s.seal(blob)
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}

	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	s.logger.Debug("session saved", logging.String("user", info.Username))
	return nil
}

// HasValidSession reports whether a loadable, unexpired session exists.
func (s *FileStore) HasValidSession() bool {
	return s.Load().Valid
}

// ClearSession removes the stored token. Clearing an absent session is not
// an error.
func (s *FileStore) ClearSession() error {
	path, err := s.tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) tokenPath() (string, error) {
	if strings.TrimSpace(s.dir) == "" || s.username == "" {
		return "", errors.New("session directory or username unresolved")
	}
	return filepath.Join(s.dir, s.username+".token.enc"), nil
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return filepath.Base(u.Username) // strip any DOMAIN\ prefix
	}
	return os.Getenv("USER")
}

// isExpired treats an empty or unparsable expiry as expired.
func isExpired(expiresAt string) bool {
	if expiresAt == "" {
		return true
	}
	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		// Relay builds without a zone suffix are treated as UTC.
		expiry, err = time.ParseInLocation("2006-01-02T15:04:05", expiresAt, time.UTC)
		if err != nil {
			return true
		}
	}
	return !expiry.After(time.Now())
}

// seal encrypts blob with AES-256-GCM under the store key, nonce prefixed.
func (s *FileStore) seal(blob []byte) ([]byte, error) {
	gcm, err := s.aead(true)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, blob, nil), nil
}

func (s *FileStore) unseal(sealed []byte) (string, error) {
	gcm, err := s.aead(false)
	if err != nil {
		return "", err
	}
	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("sealed session too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	blob, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt session: %w", err)
	}
	return string(blob), nil
}

func (s *FileStore) aead(createKey bool) (cipher.AEAD, error) {
	key, err := s.loadKey(createKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}

func (s *FileStore) loadKey(create bool) ([]byte, error) {
	keyPath := filepath.Join(s.dir, keyFileName)
	key, err := os.ReadFile(keyPath)
	if err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("session key has unexpected length %d", len(key))
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || !create {
		return nil, fmt.Errorf("read session key: %w", err)
	}

	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("write session key: %w", err)
	}
	return key, nil
}

var _ Provider = (*FileStore)(nil)
