package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CheckpointManager snapshots the JSON store files of a data directory.
type CheckpointManager struct {
	dataDir        string
	checkpointsDir string
}

// CheckpointMetadata contains metadata about a checkpoint.
type CheckpointMetadata struct {
	CreatedAt    time.Time        `json:"created_at"`
	FileSizes    map[string]int64 `json:"file_sizes"`
	// Absent lists store files that did not exist when the checkpoint was taken.
	Absent       []string         `json:"absent,omitempty"`
	ID           string           `json:"id"`
	Description  string           `json:"description"`
	Patterns     int              `json:"patterns"`
	HistoryItems int              `json:"history_items"`
	IsAuto       bool             `json:"is_auto"`
}

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrInvalidCheckpointID = errors.New("invalid checkpoint id: cannot contain path separators")
)

const maxAutoCheckpoints = 5

var checkpointFiles = []string{PatternsFileName, HistoryFileName}

// NewCheckpointManager creates a manager storing snapshots under dataDir/checkpoints.
func NewCheckpointManager(dataDir string) (*CheckpointManager, error) {
	if err := validateString(dataDir, "dataDir"); err != nil {
		return nil, err
	}
	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &CheckpointManager{
		dataDir:        dataDir,
		checkpointsDir: checkpointsDir,
	}, nil
}

// Create snapshots the store files under the given tag. Each file is copied
// under its own lock so the snapshot never holds a half-written file.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointMetadata, error) {
	return cm.create(ctx, tag, description, false)
}

// AutoCheckpoint creates a generated checkpoint and prunes old automatic ones.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) (*CheckpointMetadata, error) {
	base := fmt.Sprintf("auto-%s-%s", prefix, time.Now().Format("2006-01-02-150405"))
	description := fmt.Sprintf("Automatic checkpoint before %s", prefix)

	tag := base
	metadata, err := cm.create(ctx, tag, description, true)
	for n := 2; errors.Is(err, ErrCheckpointExists); n++ {
		tag = fmt.Sprintf("%s-%d", base, n)
		metadata, err = cm.create(ctx, tag, description, true)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	if err := cm.cleanupOldAutoCheckpoints(ctx); err != nil {
		slog.Warn("failed to clean up old auto-checkpoints", "error", err)
	}
	return metadata, nil
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointMetadata, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if tag == "" {
		tag = fmt.Sprintf("checkpoint-%s", time.Now().Format("2006-01-02-150405"))
	}
	if err := validateCheckpointID(tag); err != nil {
		return nil, err
	}

	dir := filepath.Join(cm.checkpointsDir, tag)
	if _, err := os.Stat(dir); err == nil {
		return nil, ErrCheckpointExists
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	metadata := CheckpointMetadata{
		ID:          tag,
		CreatedAt:   time.Now().UTC(),
		Description: description,
		FileSizes:   make(map[string]int64),
		IsAuto:      auto,
	}

	for _, name := range checkpointFiles {
		src := filepath.Join(cm.dataDir, name)
		var data []byte
		err := withFileLock(ctx, src, false, func() error {
			var err error
			data, err = readStoreFile(src)
			return err
		})
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
		if data == nil {
			metadata.Absent = append(metadata.Absent, name)
			continue
		}
		if err := writeFileAtomic(filepath.Join(dir, name), data); err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
		metadata.FileSizes[name] = int64(len(data))
		countItems(name, data, &metadata)
	}

	if err := cm.saveMetadata(dir, metadata); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}
	return &metadata, nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointMetadata, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metadata, err := cm.loadMetadata(filepath.Join(cm.checkpointsDir, entry.Name()))
		if err != nil {
			// Skip corrupted metadata files
			continue
		}
		checkpoints = append(checkpoints, *metadata)
	}

	sort.SliceStable(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})
	return checkpoints, nil
}

// Restore replaces the store files with the checkpoint's copies. Files that
// were absent when the checkpoint was taken are removed, returning them to
// empty state. Every file is verified before any is replaced.
func (cm *CheckpointManager) Restore(ctx context.Context, checkpointID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCheckpointID(checkpointID); err != nil {
		return err
	}

	dir := filepath.Join(cm.checkpointsDir, checkpointID)
	metadata, err := cm.loadMetadata(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}

	// Verify checkpoint integrity
	snapshots := make(map[string][]byte)
	for _, name := range checkpointFiles {
		data, err := readStoreFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		if !json.Valid(data) {
			return fmt.Errorf("%w: %s", ErrCheckpointCorrupted, name)
		}
		snapshots[name] = data
	}

	absent := make(map[string]bool, len(metadata.Absent))
	for _, name := range metadata.Absent {
		absent[name] = true
	}

	for _, name := range checkpointFiles {
		data, ok := snapshots[name]
		if !ok && !absent[name] {
			continue
		}
		dst := filepath.Join(cm.dataDir, name)
		err := withFileLock(ctx, dst, true, func() error {
			if !ok {
				return removeStoreFile(dst)
			}
			return writeFileAtomic(dst, data)
		})
		if err != nil {
			return fmt.Errorf("failed to restore %s: %w", name, err)
		}
	}
	return nil
}

func removeStoreFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Delete removes a checkpoint.
func (cm *CheckpointManager) Delete(_ context.Context, checkpointID string) error {
	if err := validateCheckpointID(checkpointID); err != nil {
		return err
	}

	dir := filepath.Join(cm.checkpointsDir, checkpointID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}

func (cm *CheckpointManager) cleanupOldAutoCheckpoints(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}

	autoCount := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		autoCount++
		if autoCount > maxAutoCheckpoints {
			if err := cm.Delete(ctx, cp.ID); err != nil {
				slog.Debug("failed to delete old auto-checkpoint during cleanup", "error", err, "checkpoint", cp.ID)
			}
		}
	}
	return nil
}

func (cm *CheckpointManager) saveMetadata(dir string, metadata CheckpointMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, "meta.json"), data)
}

func (cm *CheckpointManager) loadMetadata(dir string) (*CheckpointMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, "meta.json")) //nolint:gosec // inside the checkpoints directory
	if err != nil {
		return nil, err
	}

	var metadata CheckpointMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func countItems(name string, data []byte, metadata *CheckpointMetadata) {
	switch name {
	case PatternsFileName:
		var set map[string][]json.RawMessage
		if json.Unmarshal(data, &set) == nil {
			for _, rules := range set {
				metadata.Patterns += len(rules)
			}
		}
	case HistoryFileName:
		var entries []json.RawMessage
		if json.Unmarshal(data, &entries) == nil {
			metadata.HistoryItems = len(entries)
		}
	}
}

func validateCheckpointID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidCheckpointID
	}
	return nil
}
