package out

import (
	"encoding/json"
	"fmt"

	"github.com/peterbourgon/diskv/v3"

	countdown "timeblocks/internal/modules/countdown/domain"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
)

const snapshotKey = "countdown-config"

// DiskvSnapshotStore keeps the local snapshot as one JSON value in the
// device profile directory.
type DiskvSnapshotStore struct {
	d *diskv.Diskv
}

func NewDiskvSnapshotStore(dir string) reconcileout.SnapshotStore {
	return &DiskvSnapshotStore{d: diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 0,
		FilePerm:     0o600,
		PathPerm:     0o755,
	})}
}

func (s *DiskvSnapshotStore) Save(cfg countdown.Configuration) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.d.Write(snapshotKey, payload); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *DiskvSnapshotStore) Load() (countdown.Configuration, bool, error) {
	if !s.d.Has(snapshotKey) {
		return countdown.Configuration{}, false, nil
	}
	payload, err := s.d.Read(snapshotKey)
	if err != nil {
		return countdown.Configuration{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	cfg := countdown.Configuration{}
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return countdown.Configuration{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return countdown.Configuration{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return cfg, true, nil
}
