package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"tokcount/config"
)

// SchemaVersion is bumped whenever the layout of cached counts changes.
// Cached counts are cheap to recompute, so any version mismatch drops the
// cache instead of migrating it.
const SchemaVersion = 1

var keySchema = []byte("schema")

// SchemaInfo is the stamp written next to the cached counts.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltCache) GetSchemaInfo() (SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchema)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &info); err != nil {
			return fmt.Errorf("corrupt schema stamp: %w", err)
		}
		return nil
	})
	return info, err
}

func (s *BoltCache) SetSchemaInfo(info SchemaInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchema, data)
	})
}

// ComputeConfigHash hashes the settings that influence a token count.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		Encoding string `json:"encoding"`
		Offline  bool   `json:"offline"`
	}{
		Encoding: cfg.Encoding.Name,
		Offline:  cfg.Encoding.Offline,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// CheckResult tells whether the cached counts can be reused under a config.
type CheckResult struct {
	Fresh  bool // no stamp yet, nothing cached
	Stale  bool
	Stored SchemaInfo
	Reason string
}

// Check compares the stored stamp with cfg without modifying the cache.
func (s *BoltCache) Check(cfg *config.Config) (CheckResult, error) {
	stored, err := s.GetSchemaInfo()
	if err != nil {
		return CheckResult{}, err
	}

	result := CheckResult{Stored: stored}
	switch {
	case stored.Version == 0:
		result.Fresh = true
	case stored.Version != SchemaVersion:
		result.Stale = true
		result.Reason = fmt.Sprintf("cache schema v%d, want v%d", stored.Version, SchemaVersion)
	case stored.ConfigHash != ComputeConfigHash(cfg):
		result.Stale = true
		result.Reason = "encoding configuration changed"
	}
	return result, nil
}

// Prepare drops stale counts and stamps the cache for cfg.
func (s *BoltCache) Prepare(cfg *config.Config) (CheckResult, error) {
	result, err := s.Check(cfg)
	if err != nil {
		return CheckResult{}, err
	}

	if result.Stale {
		if err := s.Clear(); err != nil {
			return CheckResult{}, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	if result.Stale || result.Fresh {
		stamp := SchemaInfo{Version: SchemaVersion, ConfigHash: ComputeConfigHash(cfg)}
		if err := s.SetSchemaInfo(stamp); err != nil {
			return CheckResult{}, fmt.Errorf("failed to stamp cache: %w", err)
		}
	}

	return result, nil
}

// Clear removes all cached counts and the schema stamp.
func (s *BoltCache) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCounts, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
