// Package config describes writers, readers and the command line tool in one
// YAML document.
//
//	store:
//	  backend: s3
//	  bucket: features
//	  prefix: corpus-a
//	  dynamodb_table: h5features-commits
//	write:
//	  compression: zstd
//	  version: "1.1"
//	read:
//	  cache_bytes: 67108864
//	log:
//	  level: info
//	  format: json
//
// ${VAR} references are replaced by environment variables before parsing.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"

	"github.com/bootphon/h5features-sub000"
	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/blobstore/minio"
	"github.com/bootphon/h5features-sub000/blobstore/s3"
	"github.com/bootphon/h5features-sub000/codec"
	"github.com/bootphon/h5features-sub000/format"
	"github.com/bootphon/h5features-sub000/internal/cache"
	"github.com/bootphon/h5features-sub000/internal/compress"
)

// Store backends.
const (
	BackendLocal  = "local"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendMinIO  = "minio"
)

// Config is the root document.
type Config struct {
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Write WriteConfig `yaml:"write" mapstructure:"write"`
	Read  ReadConfig  `yaml:"read" mapstructure:"read"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects where containers live.
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Path is the directory (local) or database file (sqlite).
	Path   string `yaml:"path,omitempty" mapstructure:"path"`
	Bucket string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	Prefix string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	// DynamoDBTable moves s3 commit pointers into a DynamoDB table.
	DynamoDBTable string `yaml:"dynamodb_table,omitempty" mapstructure:"dynamodb_table"`
	Endpoint      string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	AccessKey     string `yaml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey     string `yaml:"secret_key,omitempty" mapstructure:"secret_key"`
	Secure        bool   `yaml:"secure,omitempty" mapstructure:"secure"`
}

// WriteConfig holds the settings of new groups.
type WriteConfig struct {
	Compression string `yaml:"compression" mapstructure:"compression"`
	Version     string `yaml:"version,omitempty" mapstructure:"version"`
	Codec       string `yaml:"codec" mapstructure:"codec"`
	ChunkRows   int    `yaml:"chunk_rows,omitempty" mapstructure:"chunk_rows"`
}

// ReadConfig bounds the resources of reads.
type ReadConfig struct {
	CacheBytes      int64 `yaml:"cache_bytes" mapstructure:"cache_bytes"`
	IOLimit         int64 `yaml:"io_limit,omitempty" mapstructure:"io_limit"`
	MaxConcurrentIO int64 `yaml:"max_concurrent_io,omitempty" mapstructure:"max_concurrent_io"`
	// BlockCacheBytes caches raw blocks of bucket backends in memory.
	BlockCacheBytes int64 `yaml:"block_cache_bytes,omitempty" mapstructure:"block_cache_bytes"`
	BlockSize       int64 `yaml:"block_size,omitempty" mapstructure:"block_size"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns a local store with uncompressed chunks, the default format
// version and warn-level text logs.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: BackendLocal},
		Write: WriteConfig{Compression: compress.None.String(), Codec: codec.Default.Name()},
		Read:  ReadConfig{CacheBytes: arraystore.DefaultCacheBytes},
		Log:   LogConfig{Level: "warn", Format: "text"},
	}
}

// Load reads a YAML file over Default.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document over Default and validates it.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(substituteEnvVars(string(raw))))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR} with environment variable values.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start
		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks names and ranges.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendLocal, BackendSQLite:
	case BackendS3, BackendMinIO:
		if c.Store.Bucket == "" {
			errs = append(errs, fmt.Errorf("config: store.bucket is required for %s", c.Store.Backend))
		}
		if c.Store.Backend == BackendMinIO && c.Store.Endpoint == "" {
			errs = append(errs, errors.New("config: store.endpoint is required for minio"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store.backend %q", c.Store.Backend))
	}
	if _, err := compress.Parse(c.Write.Compression); err != nil {
		errs = append(errs, fmt.Errorf("config: write.compression: %w", err))
	}
	if c.Write.Version != "" {
		if _, err := format.Parse(c.Write.Version); err != nil {
			errs = append(errs, fmt.Errorf("config: write.version: %w", err))
		}
	}
	if _, ok := codec.ByName(c.Write.Codec); !ok && c.Write.Codec != "" {
		errs = append(errs, fmt.Errorf("config: unknown write.codec %q", c.Write.Codec))
	}
	if c.Write.ChunkRows < 0 {
		errs = append(errs, fmt.Errorf("config: negative write.chunk_rows %d", c.Write.ChunkRows))
	}
	if c.Read.CacheBytes < 0 || c.Read.IOLimit < 0 || c.Read.MaxConcurrentIO < 0 ||
		c.Read.BlockCacheBytes < 0 || c.Read.BlockSize < 0 {
		errs = append(errs, errors.New("config: read limits must not be negative"))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log.format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelWarn, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// Logger builds the configured logger.
func (c Config) Logger() *h5features.Logger {
	lvl, err := c.Log.level()
	if err != nil {
		lvl = slog.LevelWarn
	}
	if c.Log.Format == "json" {
		return h5features.NewJSONLogger(lvl)
	}
	return h5features.NewTextLogger(lvl)
}

// Options returns the writer and reader options of c.
func (c Config) Options() []h5features.Option {
	opts := []h5features.Option{
		h5features.WithCompression(c.Write.Compression),
		h5features.WithVersion(c.Write.Version),
		h5features.WithChunkRows(c.Write.ChunkRows),
		h5features.WithCacheSize(c.Read.CacheBytes),
		h5features.WithIOLimit(c.Read.IOLimit),
		h5features.WithMaxConcurrentIO(c.Read.MaxConcurrentIO),
		h5features.WithLogger(c.Logger()),
	}
	if cd, ok := codec.ByName(c.Write.Codec); ok {
		opts = append(opts, h5features.WithCodec(cd))
	}
	return opts
}

// Location resolves the configured store. target, when not empty, replaces
// store.path for file backends and store.prefix for bucket backends.
func (c Config) Location(ctx context.Context, target string) (h5features.Location, error) {
	s := c.Store
	switch s.Backend {
	case BackendLocal, BackendSQLite:
		p := s.Path
		if target != "" {
			p = target
		}
		if p == "" {
			return h5features.Location{}, fmt.Errorf("config: no path for %s store", s.Backend)
		}
		if s.Backend == BackendSQLite {
			return h5features.SQLite(p), nil
		}
		return h5features.Local(p), nil
	case BackendS3:
		prefix := s.Prefix
		if target != "" {
			prefix = target
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return h5features.Location{}, fmt.Errorf("config: load aws config: %w", err)
		}
		store := s3.NewStore(awss3.NewFromConfig(awsCfg), s.Bucket, prefix)
		if s.DynamoDBTable == "" {
			return c.remote(store), nil
		}
		uri := "s3://" + s.Bucket
		if p := strings.Trim(prefix, "/"); p != "" {
			uri += "/" + p
		}
		return c.remote(s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), s.DynamoDBTable, uri)), nil
	case BackendMinIO:
		prefix := s.Prefix
		if target != "" {
			prefix = target
		}
		store, err := minio.Dial(s.Endpoint, s.AccessKey, s.SecretKey, s.Secure, s.Bucket, prefix)
		if err != nil {
			return h5features.Location{}, fmt.Errorf("config: minio: %w", err)
		}
		return c.remote(store), nil
	default:
		return h5features.Location{}, fmt.Errorf("config: unknown store.backend %q", s.Backend)
	}
}

// remote wraps bucket stores in a block cache when one is configured.
func (c Config) remote(store blobstore.BlobStore) h5features.Location {
	if c.Read.BlockCacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cache.NewShardedLRU(c.Read.BlockCacheBytes, nil), c.Read.BlockSize)
	}
	return h5features.Remote(store)
}
