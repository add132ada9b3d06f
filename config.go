package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const defaultConfigFile = "voz.toml"

type config struct {
	Log   logConfig   `toml:"log"`
	Run   runConfig   `toml:"run"`
	Build buildConfig `toml:"build"`
}

type logConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type runConfig struct {
	Trace   bool     `toml:"trace"`
	Dump    bool     `toml:"dump"`
	Timeout duration `toml:"timeout"`
	Inputs  []string `toml:"inputs"`
}

type buildConfig struct {
	Output string `toml:"output"`
}

// duration decodes TOML strings like "1m30s".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// loadConfig reads the configuration file at path. An empty path means the
// default file, which need not exist.
func loadConfig(path string) (cfg config, _ error) {
	required := path != ""
	if !required {
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return cfg, fmt.Errorf("unknown keys in %s: %v", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}
