package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StorageClient keeps generated export files on local disk, for deployments
// without object storage. Files are served under PublicPrefix by the HTTP
// layer and expire via CleanupOlderThan.
type StorageClient struct {
	BaseDir      string
	PublicPrefix string
	BaseURL      string
}

func NewLocalStorage(baseDir, publicPrefix, baseURL string) (*StorageClient, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if publicPrefix == "" {
		publicPrefix = "/files"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage dir %q: %w", baseDir, err)
	}

	return &StorageClient{BaseDir: baseDir, PublicPrefix: publicPrefix, BaseURL: baseURL}, nil
}

// Save writes data under a collision-free name and returns that name. The
// random prefix is stripped again when the file is served, so the operator
// downloads the original filename.
func (s *StorageClient) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	// base name only, never a client-supplied path
	fileName = filepath.Base(fileName)

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("generate file name: %w", err)
	}
	final := fmt.Sprintf("%s_%s", hex.EncodeToString(randBytes), fileName)

	path := filepath.Join(s.BaseDir, final)

	// write-then-rename so a concurrent download never sees a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize file: %w", err)
	}

	return final, nil
}

// GetURL builds the public URL for a saved file: absolute when BaseURL is
// configured, a path under PublicPrefix otherwise.
func (s *StorageClient) GetURL(fileName string) string {
	prefix := s.PublicPrefix
	if prefix == "" {
		prefix = "/files"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	if s.BaseURL != "" {
		return fmt.Sprintf("%s%s/%s", strings.TrimSuffix(s.BaseURL, "/"), prefix, fileName)
	}

	return fmt.Sprintf("%s/%s", prefix, fileName)
}

// CleanupOlderThan removes expired export files, matching the TTL of their
// redis status entries.
func (s *StorageClient) CleanupOlderThan(d time.Duration) error {
	now := time.Now()
	return filepath.WalkDir(s.BaseDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) > d {
			_ = os.Remove(path)
		}
		return nil
	})
}
