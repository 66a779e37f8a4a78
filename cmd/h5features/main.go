// Command h5features inspects and maintains feature containers.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bootphon/h5features-sub000/config"
)

var version = "0.1.0"

// app carries the configuration shared by all commands.
type app struct {
	v   *viper.Viper
	cfg config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:   "h5features",
		Short: "Inspect and maintain timestamped feature containers",
		Long: `h5features reads containers of timestamped feature vectors stored in a
local directory, a SQLite file, an S3 bucket or a MinIO bucket.

Settings come from a YAML file (--config), H5F_* environment variables
(H5F_STORE_BACKEND, H5F_LOG_LEVEL, ...) and flags, later sources winning.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cfgFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to a YAML configuration file")
	pf.String("backend", "", "Store backend (local, sqlite, s3, minio)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (text, json)")
	pf.Int64("cache-bytes", 0, "Decoded chunk cache size in bytes")
	for key, flag := range map[string]string{
		"store.backend":    "backend",
		"log.level":        "log-level",
		"log.format":       "log-format",
		"read.cache_bytes": "cache-bytes",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		a.versionCmd(),
		a.infoCmd(),
		a.groupsCmd(),
		a.lsCmd(),
		a.readCmd(),
		a.verifyCmd(),
		a.vacuumCmd(),
	)
	return root
}

// load layers the configuration file, H5F_ environment variables and flags.
func (a *app) load(path string) error {
	base := config.Default()
	if path != "" {
		var err error
		if base, err = config.Load(path); err != nil {
			return err
		}
	}
	setDefaults(a.v, base)
	a.v.SetEnvPrefix("H5F")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	var cfg config.Config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func setDefaults(v *viper.Viper, c config.Config) {
	for key, val := range map[string]any{
		"store.backend":          c.Store.Backend,
		"store.path":             c.Store.Path,
		"store.bucket":           c.Store.Bucket,
		"store.prefix":           c.Store.Prefix,
		"store.dynamodb_table":   c.Store.DynamoDBTable,
		"store.endpoint":         c.Store.Endpoint,
		"store.access_key":       c.Store.AccessKey,
		"store.secret_key":       c.Store.SecretKey,
		"store.secure":           c.Store.Secure,
		"write.compression":      c.Write.Compression,
		"write.version":          c.Write.Version,
		"write.codec":            c.Write.Codec,
		"write.chunk_rows":       c.Write.ChunkRows,
		"read.cache_bytes":       c.Read.CacheBytes,
		"read.io_limit":          c.Read.IOLimit,
		"read.max_concurrent_io": c.Read.MaxConcurrentIO,
		"read.block_cache_bytes": c.Read.BlockCacheBytes,
		"read.block_size":        c.Read.BlockSize,
		"log.level":              c.Log.Level,
		"log.format":             c.Log.Format,
	} {
		v.SetDefault(key, val)
	}
}
