package localcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

const (
	cacheFileMode   = 0o600
	cacheDirMode    = 0o700
	cacheFileSuffix = ".toml"
	tempFilePattern = ".snapshot-*.toml.tmp"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

// FileStore keeps one TOML file per account under a directory. Writes go through a
// temp file and rename so a crash never leaves a half-written snapshot.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir, creating it when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache directory: %w", err)
	}
	if err := os.MkdirAll(abs, cacheDirMode); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{dir: filepath.Clean(abs)}, nil
}

func (f *FileStore) Load(ctx context.Context, accountID string) (domain.CachedSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CachedSnapshot{}, false, err
	}

	path := f.pathFor(accountID)
	mu := lockForPath(path)
	mu.RLock()
	defer mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.CachedSnapshot{}, false, nil
		}
		return domain.CachedSnapshot{}, false, fmt.Errorf("read cache file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.CachedSnapshot{}, false, fmt.Errorf("%w: decode %s: %v", domain.ErrCacheCorrupt, filepath.Base(path), err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.CachedSnapshot{}, false, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	file.applyDefaults()

	snapshot, err := fromSchema(file)
	if err != nil {
		return domain.CachedSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func (f *FileStore) Save(ctx context.Context, snapshot domain.CachedSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := f.pathFor(snapshot.AccountID)
	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	file := toSchema(snapshot)
	file.applyDefaults()

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode cache file: %w", err)
	}
	return writeAtomic(path, data)
}

func (f *FileStore) Clear(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := f.pathFor(accountID)
	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (f *FileStore) pathFor(accountID string) string {
	name := unsafeChars.ReplaceAllString(accountID, "_")
	if name == "" {
		name = "_"
	}
	return filepath.Join(f.dir, name+cacheFileSuffix)
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tempFile.Chmod(cacheFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp cache file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}

	cleanup = false
	return nil
}
