package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ignite/aspect-export/internal/pkg/logger"
)

// NetworkBackend copies generated files into an already-mounted network
// directory (SMB, NFS, or a local path). The target directory must exist and
// be writable; existing files are overwritten silently.
type NetworkBackend struct {
	log *logger.Logger
}

// NewNetworkBackend creates a network-share backend.
func NewNetworkBackend(log *logger.Logger) *NetworkBackend {
	return &NetworkBackend{log: log}
}

// Upload copies localPath to target/fileName and verifies the copy: the
// destination must exist afterward and match the source size.
func (b *NetworkBackend) Upload(ctx context.Context, localPath, target, fileName string) (*Result, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("local file not readable: %w", err)
	}
	defer src.Close()

	srcInfo, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat local file: %w", err)
	}

	target = strings.TrimRight(target, "/\\")
	dirInfo, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("network directory does not exist: %s", target)
	}
	if !dirInfo.IsDir() {
		return nil, fmt.Errorf("network path is not a directory: %s", target)
	}

	destPath := filepath.Join(target, fileName)
	if _, err := os.Stat(destPath); err == nil {
		b.log.Warn("uploader: network file already exists, overwriting", "destination", destPath)
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("network directory is not writable: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return nil, fmt.Errorf("copy to network directory: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("flush network file: %w", err)
	}

	destInfo, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("file was not found after copy: %w", err)
	}
	if destInfo.Size() != srcInfo.Size() {
		return nil, fmt.Errorf("file size mismatch after copy (source: %d, dest: %d)",
			srcInfo.Size(), destInfo.Size())
	}

	b.log.Info("uploader: file copied to network directory",
		"source", localPath,
		"destination", destPath,
		"size", destInfo.Size(),
	)

	return &Result{Path: destPath}, nil
}

// CheckAccess reports whether a network path exists, is a directory, and is
// writable. Used by the admin API to validate destinations up front.
func (b *NetworkBackend) CheckAccess(target string) error {
	target = strings.TrimRight(target, "/\\")
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", target)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", target)
	}
	probe, err := os.CreateTemp(target, ".aspect-probe-*")
	if err != nil {
		return fmt.Errorf("path is not writable: %s", target)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}
