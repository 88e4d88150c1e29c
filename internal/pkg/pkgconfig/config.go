package pkgconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
	IsSet(key string) bool
	UnmarshalKey(key string, out any) error
	Close() error
}

type Viper struct {
	v *viper.Viper
}

// NewViper reads the YAML file at path. Environment variables override file
// values, with "." in keys replaced by "_" (app.tz -> APP_TZ). A .env file in
// the working directory is loaded first when present.
func NewViper(path string) (*Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return &Viper{v: v}, nil
}

// NewFromViper wraps an already populated viper instance; tests use it to
// build configs in memory.
func NewFromViper(v *viper.Viper) *Viper {
	return &Viper{v: v}
}

func (c *Viper) GetString(key string) string { return c.v.GetString(key) }

func (c *Viper) GetInt(key string) int { return c.v.GetInt(key) }

func (c *Viper) GetBool(key string) bool { return c.v.GetBool(key) }

func (c *Viper) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }

func (c *Viper) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }

func (c *Viper) GetStringSlice(key string) []string { return c.v.GetStringSlice(key) }

func (c *Viper) IsSet(key string) bool { return c.v.IsSet(key) }

func (c *Viper) UnmarshalKey(key string, out any) error { return c.v.UnmarshalKey(key, out) }

func (c *Viper) Close() error { return nil }
