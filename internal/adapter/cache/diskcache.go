package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// DefaultPrefix - префикс имён файлов кэша.
const DefaultPrefix = "txp_ais_feed"

// DiskCache хранит сырые ответы лент в файлах вида <prefix>_<md5(url)>.
// Запись идёт во временный файл в том же каталоге с последующим Rename,
// поэтому читатели никогда не видят частично записанный файл и блокировки не нужны.
type DiskCache struct {
	fs     billy.Filesystem
	prefix string
	now    func() time.Time
	log    *slog.Logger
}

// Option настраивает DiskCache.
type Option func(*DiskCache)

// WithClock подменяет источник текущего времени для проверки свежести.
func WithClock(now func() time.Time) Option {
	return func(c *DiskCache) {
		c.now = now
	}
}

// WithPrefix задаёт префикс имён файлов.
func WithPrefix(prefix string) Option {
	return func(c *DiskCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// NewDiskCache создает кэш поверх файловой системы billy (обычно osfs, корень - временный каталог).
func NewDiskCache(fs billy.Filesystem, log *slog.Logger, opts ...Option) *DiskCache {
	c := &DiskCache{
		fs:     fs,
		prefix: DefaultPrefix,
		now:    time.Now,
		log:    log.With(slog.String("component", "cache")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key возвращает имя файла кэша для URL.
func (c *DiskCache) Key(url string) string {
	sum := md5.Sum([]byte(url))
	return c.prefix + "_" + hex.EncodeToString(sum[:])
}

// Path возвращает полный путь файла кэша.
func (c *DiskCache) Path(key string) string {
	return c.fs.Join(c.fs.Root(), key)
}

// Get читает запись, если она существует и modTime + ttl ещё не наступило.
// Отсутствующая или устаревшая запись возвращает ok == false без ошибки.
func (c *DiskCache) Get(key string, ttl time.Duration) ([]byte, bool, error) {
	const op = "cache.DiskCache.Get"
	log := c.log.With(slog.String("op", op), slog.String("key", key))
	info, err := c.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Cache miss")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: failed to stat %s: %w", op, key, err)
	}
	if !info.ModTime().Add(ttl).After(c.now()) {
		log.Debug("Cache entry is stale", slog.Time("mod_time", info.ModTime()))
		return nil, false, nil
	}
	data, err := util.ReadFile(c.fs, key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: failed to read %s: %w", op, key, err)
	}
	log.Debug("Cache hit", slog.Int("bytes", len(data)))
	return data, true, nil
}

// Put атомарно заменяет запись: пишет во временный файл и переименовывает его.
func (c *DiskCache) Put(key string, data []byte) error {
	const op = "cache.DiskCache.Put"
	tmp := key + "." + uuid.NewString()
	f, err := c.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("%s: failed to create temporary file: %w", op, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("%s: failed to write temporary file: %w", op, err)
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("%s: failed to close temporary file: %w", op, err)
	}
	if err := c.fs.Rename(tmp, key); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("%s: failed to rename %s: %w", op, tmp, err)
	}
	c.log.Debug("Cache entry written",
		slog.String("op", op),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)
	return nil
}
