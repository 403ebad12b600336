/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads rentkit settings from a YAML file, a .env file and
// RENTKIT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tomoncle/rentkit/database"
	"github.com/tomoncle/rentkit/utils"
)

const EnvPrefix = "RENTKIT"

var validate = validator.New()

// Config is the on-disk configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Migrate  MigrateConfig  `mapstructure:"migrate"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Type            string        `mapstructure:"type" validate:"required,oneof=postgres postgresql pgx mysql sqlite sqlite3"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname" validate:"required"`
	Schema          string        `mapstructure:"schema"`
	SSLMode         string        `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryLog        bool          `mapstructure:"query_log"`
	SlowQueryTime   time.Duration `mapstructure:"slow_query_time"`
}

type MigrateConfig struct {
	OnStartup      bool   `mapstructure:"on_startup"`
	ForeignKeys    bool   `mapstructure:"foreign_keys"`
	ForeignKeyFile string `mapstructure:"foreign_key_file"`
}

type SeedConfig struct {
	OnMigrate   bool   `mapstructure:"on_migrate"`
	Path        string `mapstructure:"path"`
	Environment string `mapstructure:"environment" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
	File   string `mapstructure:"file"`
}

// Options selects where configuration is read from.
type Options struct {
	// ConfigFile is an explicit file path; when empty the search paths are used.
	ConfigFile  string
	ConfigName  string
	SearchPaths []string
	// EnvFile is loaded into the process environment first if it exists.
	EnvFile string
}

func DefaultOptions() Options {
	return Options{
		ConfigName:  "rentkit",
		SearchPaths: []string{".", "./configs", "$HOME/.config/rentkit", "/etc/rentkit"},
		EnvFile:     ".env",
	}
}

func setDefaults(v *viper.Viper) {
	def := database.DefaultConfig()
	conn := def.ConnectionConfig

	v.SetDefault("database.type", conn.Type)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", conn.DBName)
	v.SetDefault("database.schema", "")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.max_idle_conns", conn.MaxIdleConns)
	v.SetDefault("database.max_open_conns", conn.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", conn.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", conn.ConnMaxIdleTime)
	v.SetDefault("database.connect_timeout", conn.ConnectTimeout)
	v.SetDefault("database.query_log", conn.EnableQueryLog)
	v.SetDefault("database.slow_query_time", conn.SlowQueryTime)

	v.SetDefault("migrate.on_startup", def.DataMigrateConfig.EnableMigrateOnStartup)
	v.SetDefault("migrate.foreign_keys", def.DataMigrateConfig.EnableForeignKey)
	v.SetDefault("migrate.foreign_key_file", "")

	v.SetDefault("seed.on_migrate", def.DataInitConfig.AutoInitOnMigration)
	v.SetDefault("seed.path", def.DataInitConfig.Filepath)
	v.SetDefault("seed.environment", def.DataInitConfig.Environment)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads configuration according to opts. A missing config file or
// .env file is not an error.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		name := opts.ConfigName
		if name == "" {
			name = "rentkit"
		}
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		for _, p := range opts.SearchPaths {
			v.AddConfigPath(os.ExpandEnv(p))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that networked databases have a host.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch c.Database.Type {
	case "sqlite", "sqlite3":
	default:
		if c.Database.Host == "" {
			return fmt.Errorf("invalid configuration: database.host is required for %s", c.Database.Type)
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Namespace(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", fe.Namespace())
	default:
		return fmt.Sprintf("%s is invalid", fe.Namespace())
	}
}

// ConfigLoader converts the file configuration into the database package's.
func (c *Config) ConfigLoader() *database.Config {
	def := database.DefaultConnectionConfig()
	conn := database.ConnectionConfig{
		Type:            c.Database.Type,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		Username:        c.Database.Username,
		Password:        c.Database.Password,
		DBName:          c.Database.DBName,
		Schema:          c.Database.Schema,
		SSLMode:         c.Database.SSLMode,
		MaxIdleConns:    c.Database.MaxIdleConns,
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		ConnectTimeout:  c.Database.ConnectTimeout,
		ReadTimeout:     def.ReadTimeout,
		WriteTimeout:    def.WriteTimeout,
		EnableQueryLog:  c.Database.QueryLog,
		SlowQueryTime:   c.Database.SlowQueryTime,
	}
	return &database.Config{
		ConnectionConfig: conn,
		DataMigrateConfig: database.DataMigrateConfig{
			EnableMigrateOnStartup: c.Migrate.OnStartup,
			EnableForeignKey:       c.Migrate.ForeignKeys,
			ForeignKeyFile:         c.Migrate.ForeignKeyFile,
		},
		DataInitConfig: database.DataInitConfig{
			AutoInitOnMigration: c.Seed.OnMigrate,
			Filepath:            c.Seed.Path,
			Environment:         c.Seed.Environment,
		},
	}
}

var _ database.AbstractDatabaseConfigProvider = (*Config)(nil)

// ApplyLogging configures the process loggers. The returned closer releases
// the log file and is a no-op when none is configured.
func (c *Config) ApplyLogging() io.Closer {
	utils.ConfigureConsoleLogFormat(c.Log.Format)
	utils.ConfigureLogLevel(c.Log.Level)
	if c.Log.File == "" {
		return io.NopCloser(nil)
	}
	return utils.ConfigureFileOutput(utils.FileOutputConfig{Filename: c.Log.File, Compress: true})
}
