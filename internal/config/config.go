package config

import (
	stderrors "errors"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/vango-dev/staticrouter/internal/errors"
)

const (
	// ConfigName is the configuration file name without extension.
	ConfigName = "staticrouter"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "STATICROUTER"

	// DefaultOutput is the default output directory.
	DefaultOutput = "dist"

	// DefaultAddr is the default server address.
	DefaultAddr = ":8080"

	// DefaultBaseURL is the origin pages are rendered for.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultConcurrency bounds concurrent page rendering.
	DefaultConcurrency = 4
)

// Config is the complete configuration.
type Config struct {
	// Output is the directory prerendered files are written to and served
	// from.
	Output string `mapstructure:"output"`

	// BuildID identifies the build. Prerendering generates one when empty.
	BuildID string `mapstructure:"build_id"`

	// BaseURL is the origin pages are rendered for.
	BaseURL string `mapstructure:"base_url"`

	// Concurrency bounds concurrent page rendering.
	Concurrency int `mapstructure:"concurrency"`

	// Dev enables development diagnostics.
	Dev bool `mapstructure:"dev"`

	// DataDir holds site content.
	DataDir string `mapstructure:"data_dir"`

	// Manifest is a JSON file mapping component modules to fingerprinted
	// names. Without it modules are referenced unfingerprinted.
	Manifest string `mapstructure:"manifest"`

	// URLs lists extra paths to prerender besides those the site declares.
	URLs []string `mapstructure:"urls"`

	Server ServerConfig `mapstructure:"server"`
	S3     S3Config     `mapstructure:"s3"`

	configPath string
}

// ServerConfig configures `staticrouter serve`.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	Metrics bool   `mapstructure:"metrics"`
	Watch   bool   `mapstructure:"watch"`
}

// S3Config configures publishing to S3. Publishing is enabled when Bucket
// is set.
type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// NewViper returns a viper instance with defaults and environment binding.
// The CLI binds its flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("output", DefaultOutput)
	v.SetDefault("build_id", "")
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("dev", false)
	v.SetDefault("data_dir", "")
	v.SetDefault("manifest", "")
	v.SetDefault("urls", []string{})
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.watch", false)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	return v
}

// Load reads the configuration file into v and decodes the result. With an
// empty path, staticrouter.yaml in the working directory is used when it
// exists.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.New("E100").WithDetailf("%s does not exist.", path).Wrap(err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, errors.New("E101").Wrap(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("E101").Wrap(err)
	}
	cfg.configPath = v.ConfigFileUsed()
	return &cfg, nil
}

// Path returns the file the configuration was read from, or "".
func (c *Config) Path() string {
	return c.configPath
}

// EnsureBuildID generates a build id when none is configured and returns
// the build id.
func (c *Config) EnsureBuildID() string {
	if c.BuildID == "" {
		c.BuildID = uuid.NewString()
	}
	return c.BuildID
}

// PublishesToS3 reports whether output goes to S3.
func (c *Config) PublishesToS3() bool {
	return c.S3.Bucket != ""
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("E102").WithDetail(`"output" must not be empty.`)
	}
	if c.Concurrency < 1 {
		return errors.New("E102").
			WithDetailf(`"concurrency" is %d.`, c.Concurrency).
			WithSuggestion("Set concurrency to a positive number.")
	}
	if c.Server.Addr == "" {
		return errors.New("E102").WithDetail(`"server.addr" must not be empty.`)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("E103").WithDetailf("base_url is %q; it must be an absolute http or https URL.", c.BaseURL)
	}
	if c.PublishesToS3() && c.S3.Region == "" {
		return errors.New("E104")
	}
	return nil
}
