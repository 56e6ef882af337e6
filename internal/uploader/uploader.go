// Package uploader persists generated export files to their destination.
// Two backends share one contract: object storage (S3/MinIO) and network
// shares (SMB/NFS/local mounts). Neither performs partial-upload cleanup on
// failure; batch-level recovery handles retry.
package uploader

import (
	"context"
	"fmt"

	"github.com/ignite/aspect-export/internal/domain"
)

// Result describes a completed upload.
type Result struct {
	// Path is the resolved destination path: "bucket/file" for object
	// storage, the absolute file path for network shares.
	Path string
}

// Backend uploads a local file to a named destination.
type Backend interface {
	Upload(ctx context.Context, localPath, target, fileName string) (*Result, error)
}

// Selector picks the backend for a batch's destination kind.
type Selector struct {
	objectStore Backend
	network     Backend
}

// NewSelector creates a backend selector.
func NewSelector(objectStore, network Backend) *Selector {
	return &Selector{objectStore: objectStore, network: network}
}

// For returns the backend for the given destination kind.
func (s *Selector) For(kind domain.DestinationKind) (Backend, error) {
	switch kind {
	case domain.DestNetworkShare:
		if s.network == nil {
			return nil, fmt.Errorf("network upload backend is not configured")
		}
		return s.network, nil
	case domain.DestObjectStore, "":
		// Object storage is the default destination kind.
		if s.objectStore == nil {
			return nil, fmt.Errorf("object-store upload backend is not configured")
		}
		return s.objectStore, nil
	}
	return nil, fmt.Errorf("unknown destination kind %q", kind)
}
