package privacy

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// QueryLog appends encrypted query lines to a file. The key is generated
// per process and never persisted, so logged queries cannot be read back
// after restart; the log exists to measure volume, not content.
type QueryLog struct {
	path string
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		NonceSize() int
	}
	mu sync.Mutex
}

func NewQueryLog(path string) (*QueryLog, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &QueryLog{path: path, aead: aead}, nil
}

// Log encrypts and appends one query. Errors are returned, not fatal;
// callers log and continue.
func (l *QueryLog) Log(query string) error {
	nonce := make([]byte, l.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := l.aead.Seal(nonce, nonce, []byte(query), nil)
	line := base64.StdEncoding.EncodeToString(sealed) + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
