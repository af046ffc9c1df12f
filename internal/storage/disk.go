// Package storage persists attachment blobs on the local filesystem.
// Files are stored under server-generated keys so a stored path never
// depends on the client-supplied filename.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// PublicPrefix is the URL path under which stored files are served.
const PublicPrefix = "/uploads"

// DiskStore writes attachment blobs below a root directory and derives
// stable public URLs from a configured base URL. Keys use forward
// slashes regardless of platform so they are valid URL path segments.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates the root directory if needed and returns a
// store rooted there. baseURL is the externally reachable origin of
// the server, e.g. "http://localhost:8080".
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &DiskStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory blobs are stored under, for static serving.
func (s *DiskStore) Root() string { return s.root }

// Save stores the given bytes under a freshly generated key and
// returns the key. The key embeds the upload month and a random hex
// name plus an extension guessed from the mime type, e.g.
// "attachments/2026/08/3f2a...9c.png".
func (s *DiskStore) Save(data []byte, mimeType string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("storage: generate key: %w", err)
	}
	key := path.Join("attachments", time.Now().UTC().Format("2006/01"), hex.EncodeToString(buf)+extensionFor(mimeType))

	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write blob: %w", err)
	}
	return key, nil
}

// URLFor derives the public URL for a stored key. It performs no I/O
// and is stable for the lifetime of the stored object.
func (s *DiskStore) URLFor(key string) string {
	return s.baseURL + PublicPrefix + "/" + strings.TrimLeft(key, "/")
}

// Delete removes the blob for a key. Deleting a nonexistent key is not
// an error. Keys that would escape the root directory are refused.
func (s *DiskStore) Delete(key string) error {
	clean := path.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	full := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete blob: %w", err)
	}
	return nil
}

// extensionFor picks a file extension for a mime type, preferring the
// common spelling for types where the platform table is ambiguous.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
