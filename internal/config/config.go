// Package config loads brickcore configuration from a YAML file and
// BRICKCORE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BRICKCORE_STORAGE_DRIVER.
const EnvPrefix = "BRICKCORE"

// Config holds all brickcore settings.
type Config struct {
	Log     Log     `mapstructure:"log"`
	Storage Storage `mapstructure:"storage"`
	Blob    Blob    `mapstructure:"blob"`
	Catalog Catalog `mapstructure:"catalog"`
	Cache   Cache   `mapstructure:"cache"`
	Report  Report  `mapstructure:"report"`
	Trace   Trace   `mapstructure:"trace"`
	Metrics Metrics `mapstructure:"metrics"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `mapstructure:"level"`  // trace|debug|info|warn|error (default info)
	Format string `mapstructure:"format"` // console|json (default console)
}

// Storage selects the snapshot store.
type Storage struct {
	Driver      string `mapstructure:"driver"`       // memory|sqlite|postgres|tables (default sqlite)
	SQLitePath  string `mapstructure:"sqlite_path"`  // default ./brickcore.db
	PostgresDSN string `mapstructure:"postgres_dsn"` // used by postgres and tables
}

// Blob selects the artifact store.
type Blob struct {
	Driver string `mapstructure:"driver"`  // fs|s3|memory (default fs)
	FSRoot string `mapstructure:"fs_root"` // default ./blobdata
	S3     S3     `mapstructure:"s3"`
}

// S3 configures the s3 blob driver. Credentials come from the AWS default
// chain unless AccessKeyID is set.
type S3 struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`   // default us-east-1
	Endpoint        string `mapstructure:"endpoint"` // MinIO or other compatible endpoint
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// Catalog overrides the BrickLink URL endpoints.
type Catalog struct {
	CatalogBase    string `mapstructure:"catalog_base"`
	ImageBase      string `mapstructure:"image_base"`
	InventoryQuery string `mapstructure:"inventory_query"`
}

// Cache configures the snapshot document cache.
type Cache struct {
	TTL     time.Duration `mapstructure:"ttl"`     // default 10m, 0 disables caching
	Cleanup time.Duration `mapstructure:"cleanup"` // default 30m
}

// Report configures terminal rendering of outlines.
type Report struct {
	Style string `mapstructure:"style"` // glamour style: dark|light|notty|auto (default auto)
	Width int    `mapstructure:"width"` // word wrap (default 100)
}

// Trace selects where spans go when tracing is enabled with --trace.
type Trace struct {
	Exporter string `mapstructure:"exporter"` // stdout|otlp|json (default stdout)
	Endpoint string `mapstructure:"endpoint"` // OTLP gRPC collector, default localhost:4317
}

// Metrics selects the recorder behind --metrics FILE.
type Metrics struct {
	Exporter string `mapstructure:"exporter"` // prometheus (textfile) | expvar (JSON) (default prometheus)
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Log:     Log{Level: "info", Format: "console"},
		Storage: Storage{Driver: "sqlite", SQLitePath: "./brickcore.db", PostgresDSN: "postgres://localhost/brickcore?sslmode=disable"},
		Blob:    Blob{Driver: "fs", FSRoot: "./blobdata", S3: S3{Region: "us-east-1"}},
		Cache:   Cache{TTL: 10 * time.Minute, Cleanup: 30 * time.Minute},
		Report:  Report{Style: "auto", Width: 100},
		Trace:   Trace{Exporter: "stdout", Endpoint: "localhost:4317"},
		Metrics: Metrics{Exporter: "prometheus"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("blob.driver", d.Blob.Driver)
	v.SetDefault("blob.fs_root", d.Blob.FSRoot)
	v.SetDefault("blob.s3.bucket", d.Blob.S3.Bucket)
	v.SetDefault("blob.s3.region", d.Blob.S3.Region)
	v.SetDefault("blob.s3.endpoint", d.Blob.S3.Endpoint)
	v.SetDefault("blob.s3.path_style", d.Blob.S3.PathStyle)
	v.SetDefault("blob.s3.access_key_id", d.Blob.S3.AccessKeyID)
	v.SetDefault("blob.s3.secret_access_key", d.Blob.S3.SecretAccessKey)
	v.SetDefault("catalog.catalog_base", d.Catalog.CatalogBase)
	v.SetDefault("catalog.image_base", d.Catalog.ImageBase)
	v.SetDefault("catalog.inventory_query", d.Catalog.InventoryQuery)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup", d.Cache.Cleanup)
	v.SetDefault("report.style", d.Report.Style)
	v.SetDefault("report.width", d.Report.Width)
	v.SetDefault("trace.exporter", d.Trace.Exporter)
	v.SetDefault("trace.endpoint", d.Trace.Endpoint)
	v.SetDefault("metrics.exporter", d.Metrics.Exporter)
}

// Load reads path (or, when empty, brickcore.yaml from the working directory
// or the user config directory) and applies environment overrides. A missing
// default file is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("brickcore")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "brickcore"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	storageDrivers  = []string{"memory", "sqlite", "postgres", "tables"}
	blobDrivers     = []string{"fs", "s3", "memory"}
	logLevels       = []string{"trace", "debug", "info", "warn", "error"}
	logFormats      = []string{"console", "json"}
	traceExporters  = []string{"stdout", "otlp", "json"}
	metricExporters = []string{"prometheus", "expvar"}
)

// Validate checks drivers, formats and driver-specific requirements.
func (c Config) Validate() error {
	var errs []error
	if !oneOf(c.Storage.Driver, storageDrivers) {
		errs = append(errs, fmt.Errorf("storage.driver %q: want one of %s", c.Storage.Driver, strings.Join(storageDrivers, ", ")))
	}
	if (c.Storage.Driver == "postgres" || c.Storage.Driver == "tables") && c.Storage.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("storage.postgres_dsn required for driver %s", c.Storage.Driver))
	}
	if !oneOf(c.Blob.Driver, blobDrivers) {
		errs = append(errs, fmt.Errorf("blob.driver %q: want one of %s", c.Blob.Driver, strings.Join(blobDrivers, ", ")))
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		errs = append(errs, errors.New("blob.s3.bucket required for driver s3"))
	}
	if !oneOf(strings.ToLower(c.Log.Level), logLevels) {
		errs = append(errs, fmt.Errorf("log.level %q: want one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if !oneOf(c.Log.Format, logFormats) {
		errs = append(errs, fmt.Errorf("log.format %q: want one of %s", c.Log.Format, strings.Join(logFormats, ", ")))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Report.Width < 0 {
		errs = append(errs, errors.New("report.width must not be negative"))
	}
	if !oneOf(c.Trace.Exporter, traceExporters) {
		errs = append(errs, fmt.Errorf("trace.exporter %q: want one of %s", c.Trace.Exporter, strings.Join(traceExporters, ", ")))
	}
	if c.Trace.Exporter == "otlp" && c.Trace.Endpoint == "" {
		errs = append(errs, errors.New("trace.endpoint required for exporter otlp"))
	}
	if !oneOf(c.Metrics.Exporter, metricExporters) {
		errs = append(errs, fmt.Errorf("metrics.exporter %q: want one of %s", c.Metrics.Exporter, strings.Join(metricExporters, ", ")))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
