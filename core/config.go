package core

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Backends selectable at startup. The choice is made once per process;
// switching requires a restart.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type (
	Config struct {
		Debug     bool
		TestMode  bool
		Env       string
		AppName   string
		Build     string
		SecretKey string

		// Backend selects the active storage backend: BackendLocal or BackendRemote.
		Backend string

		JWTExpirationDelta time.Duration

		Local  LocalConfig
		Remote RemoteConfig

		RollbarToken string
	}

	// LocalConfig configures the on-device storage backend.
	LocalConfig struct {
		DataDir string
	}

	// RemoteConfig configures the shared storage backend connection.
	RemoteConfig struct {
		Engine      string
		Host        string
		Port        string
		Name        string
		User        string
		Password    string
		DisableTLS  bool
		AutoMigrate bool
	}
)

func (rc RemoteConfig) Address() string {
	return net.JoinHostPort(rc.Host, rc.Port)
}

// NewConfig loads the app configuration: defaults, then config/.env.<env> if
// it exists, then environment variables prefixed with the current env name.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "w#tq0_+aju%-fmy)39u&8(q^5cp&$f7=0uu@b5b^7rc$+yo=&4")
	v.SetDefault("backend", BackendLocal)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("local.dataDir", "data")
	v.SetDefault("remote.engine", "postgres")
	v.SetDefault("remote.port", "5432")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	conf.Env = env
	return conf, nil
}

// Validate checks that the selected backend is fully configured.
// A partially configured backend must fail here, at startup, rather than
// inside an unrelated call later.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
		if c.Local.DataDir == "" {
			return NewConfigError("local backend: dataDir is required")
		}
	case BackendRemote:
		var missing []string
		for _, p := range []struct{ name, val string }{
			{"host", c.Remote.Host},
			{"name", c.Remote.Name},
			{"user", c.Remote.User},
		} {
			if p.val == "" {
				missing = append(missing, p.name)
			}
		}
		if len(missing) > 0 {
			return NewConfigError("remote backend: missing connection params: %s", strings.Join(missing, ", "))
		}
	default:
		return NewConfigError("unknown backend %q (want %q or %q)", c.Backend, BackendLocal, BackendRemote)
	}
	return nil
}
