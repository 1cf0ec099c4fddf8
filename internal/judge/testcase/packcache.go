package testcase

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"rebornoj/internal/common/cache"
	"rebornoj/internal/common/storage"
	appErr "rebornoj/pkg/errors"
)

const (
	metaFileName  = "meta.json"
	tempPackName  = "data-pack.tmp"
	lockKeyPrefix = "judge:datapack:lock:"
)

// PackMeta identifies a versioned data pack in object storage.
type PackMeta struct {
	ProblemID int64  `json:"problem_id"`
	Version   int32  `json:"version"`
	PackKey   string `json:"pack_key"`
	PackHash  string `json:"pack_hash,omitempty"`
}

type packEntry struct {
	key       string
	path      string
	sizeBytes int64
	expiresAt time.Time
}

// PackCache keeps extracted test data packs on local disk. Concurrent
// workers coordinate through a distributed lock so a pack is downloaded
// once per host even when several judges need it at the same time.
type PackCache struct {
	rootDir    string
	ttl        time.Duration
	lockWait   time.Duration
	maxEntries int
	bucket     string
	storage    storage.ObjectStorage
	lock       cache.LockOps

	mu      sync.Mutex
	entries map[string]*packEntry
	lruKeys []string
}

func NewPackCache(rootDir string, ttl, lockWait time.Duration, maxEntries int, bucket string, storageClient storage.ObjectStorage, lock cache.LockOps) *PackCache {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	if lockWait <= 0 {
		lockWait = 30 * time.Second
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PackCache{
		rootDir:    rootDir,
		ttl:        ttl,
		lockWait:   lockWait,
		maxEntries: maxEntries,
		bucket:     bucket,
		storage:    storageClient,
		lock:       lock,
		entries:    make(map[string]*packEntry),
	}
}

// Get ensures the data pack described by meta is extracted locally and
// returns the problem directory relative to the cache root, suitable
// for Store.Cases.
func (c *PackCache) Get(ctx context.Context, meta PackMeta) (string, error) {
	if meta.ProblemID <= 0 || meta.Version <= 0 {
		return "", appErr.ValidationError("problem_id", "required")
	}
	if c.storage == nil {
		return "", appErr.New(appErr.CacheError).WithMessage("storage client is not initialized")
	}
	key := packKey(meta.ProblemID, meta.Version)
	rel := filepath.Join(fmt.Sprintf("%d", meta.ProblemID), fmt.Sprintf("%d", meta.Version))
	path := filepath.Join(c.rootDir, rel)

	if c.hitEntry(key) {
		return rel, nil
	}
	if c.checkDisk(path, meta) {
		c.addEntry(key, path)
		return rel, nil
	}
	if err := c.fetchAndExtract(ctx, meta, path); err != nil {
		return "", err
	}
	c.addEntry(key, path)
	return rel, nil
}

func (c *PackCache) hitEntry(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntryLocked(key)
		return false
	}
	entry.expiresAt = time.Now().Add(c.ttl)
	c.touchLocked(key)
	return true
}

func (c *PackCache) checkDisk(path string, meta PackMeta) bool {
	data, err := os.ReadFile(filepath.Join(path, metaFileName))
	if err != nil {
		return false
	}
	var stored PackMeta
	if err := json.Unmarshal(data, &stored); err != nil {
		return false
	}
	return stored.PackHash == meta.PackHash && stored.Version == meta.Version
}

func (c *PackCache) fetchAndExtract(ctx context.Context, meta PackMeta, path string) error {
	if c.lock == nil {
		return appErr.New(appErr.CacheError).WithMessage("lock client is not initialized")
	}
	lockKey := lockKeyPrefix + packKey(meta.ProblemID, meta.Version)
	locked, err := c.lock.TryLock(ctx, lockKey, 5*time.Minute)
	if err != nil {
		return appErr.Wrapf(err, appErr.LockFailed, "acquire data pack lock failed")
	}
	if !locked {
		return c.waitForPack(ctx, meta, path)
	}
	defer func() {
		_ = c.lock.Unlock(ctx, lockKey)
	}()

	if c.checkDisk(path, meta) {
		return nil
	}

	if err := os.RemoveAll(path); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "cleanup cache dir failed")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "create cache dir failed")
	}

	tempPath := filepath.Join(path, tempPackName)
	if err := c.downloadPack(ctx, meta, tempPath); err != nil {
		return err
	}
	if err := extractPack(tempPath, path); err != nil {
		return err
	}
	_ = os.Remove(tempPath)

	metaBytes, _ := json.Marshal(meta)
	if err := os.WriteFile(filepath.Join(path, metaFileName), metaBytes, 0644); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "write meta failed")
	}
	return nil
}

func (c *PackCache) waitForPack(ctx context.Context, meta PackMeta, path string) error {
	deadline := time.Now().Add(c.lockWait)
	for {
		if c.checkDisk(path, meta) {
			return nil
		}
		if time.Now().After(deadline) {
			return appErr.New(appErr.Timeout).WithMessage("wait for data pack cache timeout")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (c *PackCache) downloadPack(ctx context.Context, meta PackMeta, dstPath string) error {
	if meta.PackKey == "" {
		return appErr.ValidationError("pack_key", "required")
	}
	reader, err := c.storage.GetObject(ctx, c.bucket, meta.PackKey)
	if err != nil {
		return appErr.Wrapf(err, appErr.DataPackCorrupt, "download data pack failed")
	}
	defer reader.Close()

	file, err := os.Create(dstPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "create data pack file failed")
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(file, io.TeeReader(reader, hasher)); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "write data pack file failed")
	}
	if meta.PackHash != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, meta.PackHash) {
			return appErr.New(appErr.DataPackCorrupt).WithDetail("expected", meta.PackHash).WithDetail("actual", actual)
		}
	}
	return nil
}

// extractPack unpacks a tar.zst archive, rejecting entries that would
// escape the destination directory.
func extractPack(srcPath, dstDir string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "open data pack failed")
	}
	defer file.Close()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return appErr.Wrapf(err, appErr.DataPackCorrupt, "create zstd reader failed")
	}
	defer zstdReader.Close()

	tr := tar.NewReader(zstdReader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return appErr.Wrapf(err, appErr.DataPackCorrupt, "read tar entry failed")
		}
		if hdr.Name == "" {
			continue
		}
		cleanName := filepath.Clean(hdr.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return appErr.New(appErr.DataPackCorrupt).WithMessage("invalid tar entry path")
		}
		target := filepath.Join(dstDir, cleanName)
		if !strings.HasPrefix(target, filepath.Clean(dstDir)+string(filepath.Separator)) {
			return appErr.New(appErr.DataPackCorrupt).WithMessage("tar entry escape detected")
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return appErr.Wrapf(err, appErr.CacheError, "create dir failed")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return appErr.Wrapf(err, appErr.CacheError, "create parent dir failed")
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode))
			if err != nil {
				return appErr.Wrapf(err, appErr.CacheError, "create file failed")
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				return appErr.Wrapf(err, appErr.CacheError, "write file failed")
			}
			_ = out.Close()
		default:
			// skip other types
		}
	}
	return nil
}

func (c *PackCache) addEntry(key, path string) {
	size := dirSize(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &packEntry{
		key:       key,
		path:      path,
		sizeBytes: size,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.touchLocked(key)
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.removeOldestLocked()
	}
}

func (c *PackCache) touchLocked(key string) {
	for i, k := range c.lruKeys {
		if k == key {
			c.lruKeys = append(c.lruKeys[:i], c.lruKeys[i+1:]...)
			break
		}
	}
	c.lruKeys = append(c.lruKeys, key)
}

func (c *PackCache) removeOldestLocked() {
	if len(c.lruKeys) == 0 {
		return
	}
	key := c.lruKeys[0]
	c.lruKeys = c.lruKeys[1:]
	c.removeEntryLocked(key)
}

func (c *PackCache) removeEntryLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	_ = os.RemoveAll(entry.path)
}

func packKey(problemID int64, version int32) string {
	return fmt.Sprintf("%d:%d", problemID, version)
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
