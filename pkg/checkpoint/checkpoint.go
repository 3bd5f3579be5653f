package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"hirafetch/pkg/config"
	"hirafetch/pkg/logger"
	"hirafetch/pkg/models"
)

// Kinds of fetch a checkpoint can belong to
const (
	KindList   = "list"
	KindDetail = "detail"
)

// CurrentVersion is the schema version written by Save
const CurrentVersion = 1

// State is the persisted progress of one fetch run
type State struct {
	Kind string `json:"kind"`
	// LastCursor is the last confirmed page (list, 0 means none) or row
	// index (detail, -1 means none)
	LastCursor int             `json:"last_cursor"`
	TotalCount int             `json:"total_count"`
	TotalItems int             `json:"total_items"`
	Items      []models.Record `json:"items"`
	Timestamp  time.Time       `json:"timestamp"`
	// Error is set when the run stopped on a failure
	Error   string            `json:"error,omitempty"`
	Query   map[string]string `json:"query,omitempty"`
	Version int               `json:"version"`
}

// NewState returns an empty state positioned before the first unit
func NewState(kind string, query map[string]string) *State {
	cursor := 0
	if kind == KindDetail {
		cursor = -1
	}
	return &State{
		Kind:       kind,
		LastCursor: cursor,
		Items:      []models.Record{},
		Query:      query,
		Version:    CurrentVersion,
	}
}

// NextCursor is the first unit a resumed run must fetch
func (s *State) NextCursor() int {
	return s.LastCursor + 1
}

// Complete reports whether the run this state belongs to already finished.
// List runs finish once every item is collected. Detail rows may expand to
// several items, so detail runs finish once the cursor passes the last row.
func (s *State) Complete() bool {
	if s.TotalCount <= 0 {
		return false
	}
	if s.Kind == KindDetail {
		return s.NextCursor() >= s.TotalCount
	}
	return len(s.Items) >= s.TotalCount
}

// Store persists a single checkpoint
type Store interface {
	Save(ctx context.Context, state *State) error
	// Load returns nil, nil when no usable checkpoint exists
	Load(ctx context.Context) (*State, error)
	// Delete succeeds when nothing is stored
	Delete(ctx context.Context) error
	// Location describes where the checkpoint lives, for log lines
	Location() string
}

// encode renders a state as indented JSON, stamping the timestamp and counts
func encode(state *State) ([]byte, error) {
	state.Timestamp = time.Now()
	state.TotalItems = len(state.Items)
	if state.Version == 0 {
		state.Version = CurrentVersion
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(state); err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return buf.Bytes(), nil
}

// decode parses checkpoint JSON keeping numbers as json.Number
func decode(data []byte) (*State, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var state State
	if err := dec.Decode(&state); err != nil {
		return nil, err
	}
	if state.Items == nil {
		state.Items = []models.Record{}
	}
	return &state, nil
}

// FileStore keeps a checkpoint in a JSON file
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, log logger.Logger) *FileStore {
	if log == nil {
		log = logger.GetLogger()
	}
	return &FileStore{path: path, logger: log}
}

// FileName returns the checkpoint file name for a run name
func FileName(name string) string {
	return name + ".checkpoint.json"
}

// Location returns the file path
func (f *FileStore) Location() string {
	return f.path
}

// Load reads the checkpoint file. Missing or unparseable files yield nil, nil
// so the run starts from scratch.
func (f *FileStore) Load(ctx context.Context) (*State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	state, err := decode(data)
	if err != nil {
		f.logger.WarnWithFields("Ignoring unreadable checkpoint", map[string]interface{}{
			"path":  f.path,
			"error": err.Error(),
		})
		return nil, nil
	}

	f.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"path":        f.path,
		"kind":        state.Kind,
		"last_cursor": state.LastCursor,
		"items":       len(state.Items),
		"updated_at":  state.Timestamp,
	})

	return state, nil
}

// Save writes the checkpoint atomically through a temporary file
func (f *FileStore) Save(ctx context.Context, state *State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tempPath := f.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	f.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"path":        f.path,
		"last_cursor": state.LastCursor,
		"items":       state.TotalItems,
	})

	return nil
}

// Delete removes the checkpoint file
func (f *FileStore) Delete(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	f.logger.DebugWithFields("Checkpoint deleted", map[string]interface{}{"path": f.path})
	return nil
}

// NopStore never persists anything; used when checkpointing is disabled
type NopStore struct{}

func (NopStore) Save(context.Context, *State) error  { return nil }
func (NopStore) Load(context.Context) (*State, error) { return nil, nil }
func (NopStore) Delete(context.Context) error        { return nil }
func (NopStore) Location() string                    { return "disabled" }

// Open builds the store selected by the checkpoint configuration for a run name
func Open(cfg config.CheckpointConfig, name string, log logger.Logger) (Store, error) {
	if !cfg.Enabled {
		return NopStore{}, nil
	}

	switch cfg.Backend {
	case "redis":
		return NewRedisStore(RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.Database,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.TTL,
		}, name, log), nil
	case "file", "":
		dir := cfg.Directory
		if dir == "" {
			var err error
			dir, err = DataDirectory()
			if err != nil {
				return nil, fmt.Errorf("failed to get data directory: %w", err)
			}
		}
		return NewFileStore(filepath.Join(dir, FileName(name)), log), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Backend)
	}
}

// DataDirectory returns the per-user data directory for checkpoints
func DataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "hirafetch")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "hirafetch")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "hirafetch")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "hirafetch")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
