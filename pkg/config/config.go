// Package config loads the settings of the autumn command and sets up
// tracing from them.
//
// Settings are read in layers, later layers overriding earlier ones:
//
//	defaults
//	YAML file given by --config or AUTUMN_CONFIG
//	.env file in the working directory
//	AUTUMN_* environment variables
//
// Keys are dotted paths like "repl.prompt". The environment variable for a
// key is its upper-cased path with dots replaced by underscores, prefixed
// with AUTUMN_, e.g. AUTUMN_SERVE_TOKEN_TTL for "serve.token_ttl".
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/npillmayer/schuko/schukonf/koanfadapter"
)

const envPrefix = "AUTUMN_"

// Tracers lists the tracer names used throughout autumn.
var Tracers = []string{"autumn.eval", "autumn.parser", "autumn.repl", "autumn.server"}

var defaults = map[string]interface{}{
	"trace.root":          "Error",
	"trace.autumn.eval":   "Error",
	"trace.autumn.parser": "Error",
	"trace.autumn.repl":   "Error",
	"trace.autumn.server": "Error",
	"repl.prompt":         "> ",
	"repl.history":        "",
	"repl.mode":           "eval",
	"run.drain":           false,
	"serve.addr":          ":7070",
	"serve.secret":        "",
	"serve.password_hash": "",
	"serve.token_ttl":     "1h",
}

// Config is a layered configuration. It satisfies schuko.Configuration, so
// it can be handed to trace2go directly.
type Config struct {
	*koanfadapter.KConf
}

// Options control where Load looks for settings.
type Options struct {
	File   string // YAML file; AUTUMN_CONFIG is consulted if empty
	DotEnv string // .env file; ".env" if empty
	NoEnv  bool   // skip .env and environment variables
}

// Load builds a configuration. A missing .env file is not an error, a
// missing YAML file is.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")
	conf := &Config{KConf: koanfadapter.New(k, "", nil)}
	conf.InitDefaults()
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path := opts.File
	if path == "" && !opts.NoEnv {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if opts.NoEnv {
		return conf, nil
	}
	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", dotenv, err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	if v := os.Getenv("DEBUG_AUTUMN"); v == "1" || strings.EqualFold(v, "true") {
		conf.Set("trace.autumn.eval", "Debug")
	}
	return conf, nil
}

// envKey maps AUTUMN_SERVE_TOKEN_TTL to serve.token_ttl. Known keys are
// matched exactly, so underscores inside a key survive; anything else has
// every underscore turned into a dot.
func envKey(name string) string {
	name = strings.TrimPrefix(name, envPrefix)
	if name == "CONFIG" {
		return ""
	}
	for key := range defaults {
		if strings.ToUpper(strings.ReplaceAll(key, ".", "_")) == name {
			return key
		}
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

// SetTraceLevel sets the level of the root tracer and of every autumn
// tracer. It has to be called before SetupTracing to take effect.
func (c *Config) SetTraceLevel(level string) {
	c.Set("trace.root", level)
	for _, name := range Tracers {
		c.Set("trace."+name, level)
	}
}

func (c *Config) Duration(key string) time.Duration {
	return c.Koanf().Duration(key)
}

// Keys returns all configured keys in sorted order.
func (c *Config) Keys() []string {
	return c.Koanf().Keys()
}
