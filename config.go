package dbal

import (
	"cmp"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dbal/dialect"
)

// Config holds the settings of a Connection.
//
//	dsn: "mysql:host=127.0.0.1;port=3306;dbname=app"
//	username: app
//	password: ${DB_PASSWORD}
//	charset: utf8mb4
//	table_prefix: app_
//	slow_threshold: 200ms
type Config struct {
	// DSN is a PDO style data source name: "mysql:host=...;dbname=...",
	// "pgsql:host=...;dbname=..." or "sqlite:/path/to/file.db".
	DSN           string        `yaml:"dsn"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Charset       string        `yaml:"charset"`
	TablePrefix   string        `yaml:"table_prefix"`
	Debug         bool          `yaml:"debug"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// LoadConfig reads a YAML config file. ${VAR} references are expanded from
// the environment before decoding.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("dbal: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML config document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("dbal: parse config: %w", err)
	}
	if cfg.DSN == "" {
		return Config{}, fmt.Errorf("dbal: config: dsn is required")
	}
	return cfg, nil
}

// source is what database/sql.Open needs for a Config.
type source struct {
	dialect string
	driver  string
	dsn     string
}

// source translates the PDO style DSN into the registered driver name and
// its native data source name.
func (c Config) source() (source, error) {
	name, rest, err := dialect.FromDSN(c.DSN)
	if err != nil {
		return source{}, err
	}
	s := source{dialect: name, driver: name}
	switch name {
	case dialect.MySQL:
		s.dsn = c.mysqlDSN(pairs(rest))
	case dialect.Postgres:
		s.dsn = c.postgresDSN(pairs(rest))
	case dialect.SQLite:
		s.dsn = strings.TrimSpace(rest)
		if s.dsn == "" {
			return source{}, fmt.Errorf("dbal: sqlite dsn %q has no path", c.DSN)
		}
	}
	return s, nil
}

// pkv is one key=value pair of a PDO DSN.
type pkv struct{ key, value string }

func pairs(s string) []pkv {
	var kvs []pkv
	for part := range strings.SplitSeq(s, ";") {
		k, v, ok := strings.Cut(part, "=")
		if k = strings.TrimSpace(k); !ok || k == "" {
			continue
		}
		kvs = append(kvs, pkv{key: k, value: strings.TrimSpace(v)})
	}
	return kvs
}

func (c Config) mysqlDSN(kvs []pkv) string {
	cfg := mysql.NewConfig()
	cfg.User, cfg.Passwd = c.Username, c.Password
	host, port := "127.0.0.1", "3306"
	for _, kv := range kvs {
		switch strings.ToLower(kv.key) {
		case "host":
			host = kv.value
		case "port":
			port = kv.value
		case "dbname":
			cfg.DBName = kv.value
		case "unix_socket":
			cfg.Net, cfg.Addr = "unix", kv.value
		case "charset":
			if c.Charset == "" {
				c.Charset = kv.value
			}
		default:
			if cfg.Params == nil {
				cfg.Params = make(map[string]string)
			}
			cfg.Params[kv.key] = kv.value
		}
	}
	if cfg.Net != "unix" {
		cfg.Net, cfg.Addr = "tcp", net.JoinHostPort(host, port)
	}
	if c.Charset != "" {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params["charset"] = c.Charset
	}
	return cfg.FormatDSN()
}

func (c Config) postgresDSN(kvs []pkv) string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+pqValue(v))
		}
	}
	user, password := c.Username, c.Password
	for _, kv := range kvs {
		switch strings.ToLower(kv.key) {
		case "user":
			user = cmp.Or(user, kv.value)
		case "password":
			password = cmp.Or(password, kv.value)
		default:
			add(kv.key, kv.value)
		}
	}
	add("user", user)
	add("password", password)
	add("client_encoding", c.Charset)
	return strings.Join(parts, " ")
}

// pqValue quotes a lib/pq connection string value when needed.
func pqValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	return "'" + strings.ReplaceAll(v, `'`, `\'`) + "'"
}
