// Package config loads connection settings and opens elm connections.
//
// Settings are read, lowest precedence first, from built-in defaults, an
// optional YAML file and ELM_ environment variables. A .env file in the
// working directory is loaded into the environment first when present.
//
//	dialect: postgres
//	host: db.internal
//	user: app
//	database: blog
//	slow_query: 200ms
//	naming: snake
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/schema"
)

// EnvPrefix prefixes the environment variables read by Load:
// ELM_MAX_OPEN_CONNS sets max_open_conns.
const EnvPrefix = "ELM_"

// Config holds the settings of a connection.
type Config struct {
	// Dialect is one of mysql, postgres and sqlite.
	Dialect string `koanf:"dialect"`
	// Driver is the database/sql driver name. It defaults to mysql,
	// postgres (lib/pq) and sqlite; pgx selects the pgx stdlib driver.
	Driver string `koanf:"driver"`
	// Source, when set, is passed to the driver as is and the network
	// settings below are ignored.
	Source   string            `koanf:"dsn"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Database string            `koanf:"database"` // database name, or file path for sqlite
	Params   map[string]string `koanf:"params"`

	MaxOpenConns int           `koanf:"max_open_conns"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	MaxLifetime  time.Duration `koanf:"max_lifetime"`

	// SlowQuery enables query statistics and logs statements slower than it.
	SlowQuery time.Duration `koanf:"slow_query"`
	// Debug logs every statement.
	Debug bool `koanf:"debug"`

	// Naming is the schema naming strategy: identity, snake or snake_plural.
	Naming string `koanf:"naming"`
	// Descriptor is the path of a YAML mapping descriptor.
	Descriptor string `koanf:"descriptor"`
}

var defaults = map[string]any{
	"dialect":        dialect.SQLite,
	"max_open_conns": 0,
	"max_idle_conns": 2,
	"naming":         "identity",
}

// Load reads the configuration. path is an optional YAML file; envFiles
// are dotenv files loaded into the environment, ".env" when none are given.
// Missing dotenv files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}
	// Transform: ELM_MAX_OPEN_CONNS -> max_open_conns
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if _, err := dialect.SyntaxOf(c.Dialect); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, ok := schema.NamingOf(c.Naming); !ok {
		return fmt.Errorf("config: unknown naming %q", c.Naming)
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("config: negative connection limit")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	return nil
}

// DriverName returns the database/sql driver to open.
func (c *Config) DriverName() string {
	if c.Driver != "" {
		return c.Driver
	}
	syn, err := dialect.SyntaxOf(c.Dialect)
	if err != nil {
		return c.Dialect
	}
	return syn.Name()
}

// DSN returns the data source name for the dialect.
func (c *Config) DSN() (string, error) {
	if c.Source != "" {
		return c.Source, nil
	}
	syn, err := dialect.SyntaxOf(c.Dialect)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	switch syn.Name() {
	case dialect.MySQL:
		m := mysql.NewConfig()
		m.User = c.User
		m.Passwd = c.Password
		m.Net = "tcp"
		m.Addr = c.addr(3306)
		m.DBName = c.Database
		m.ParseTime = true
		if len(c.Params) > 0 {
			m.Params = c.Params
		}
		return m.FormatDSN(), nil
	case dialect.Postgres:
		u := url.URL{Scheme: "postgres", Host: c.addr(5432), Path: "/" + c.Database}
		if c.User != "" {
			u.User = url.UserPassword(c.User, c.Password)
		}
		q := url.Values{}
		for k, v := range c.Params {
			q.Set(k, v)
		}
		if !q.Has("sslmode") {
			q.Set("sslmode", "disable")
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	default:
		db := c.Database
		if db == "" {
			db = ":memory:"
		}
		if len(c.Params) == 0 {
			return db, nil
		}
		keys := make([]string, 0, len(c.Params))
		for k := range c.Params {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var b strings.Builder
		b.WriteString("file:" + db)
		for i, k := range keys {
			if i == 0 {
				b.WriteByte('?')
			} else {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k) + "=" + url.QueryEscape(c.Params[k]))
		}
		return b.String(), nil
	}
}

func (c *Config) addr(port int) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	if c.Port != 0 {
		port = c.Port
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
