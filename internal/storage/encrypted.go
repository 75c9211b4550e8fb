package storage

import (
	"context"
	"fmt"

	"docuchat-backend/internal/crypto"
)

// EncryptedStore seals every blob with AES-GCM before handing it to the
// wrapped store.
type EncryptedStore struct {
	next   BlobStore
	sealer *crypto.Sealer
}

func NewEncryptedStore(next BlobStore, key []byte) (*EncryptedStore, error) {
	sealer, err := crypto.NewSealer(key)
	if err != nil {
		return nil, err
	}
	return &EncryptedStore{next: next, sealer: sealer}, nil
}

func (s *EncryptedStore) Put(ctx context.Context, key string, data []byte) error {
	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return fmt.Errorf("encrypt blob: %w", err)
	}
	return s.next.Put(ctx, key, sealed)
}

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt blob %s: %w", key, err)
	}
	return data, nil
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}
