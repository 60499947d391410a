// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"

	"github.com/staranto/lbctl/internal/interp"
)

// FileName is the config file looked for in the standard locations.
const FileName = "lbctl.yaml"

type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}
}

var Config Type

// InterpreterSpec is one entry of the interpreters list.
type InterpreterSpec struct {
	Name   string `yaml:"name"`
	Root   string `yaml:"root"`
	Region string `yaml:"region"`
}

func Load(cfgFilePath ...string) (Type, error) {
	var (
		path string
		err  error
	)
	if len(cfgFilePath) == 1 && cfgFilePath[0] != "" {
		path = cfgFilePath[0]
	} else if path, err = getConfigPath(); err != nil {
		return Type{}, err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Type{}, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return Type{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	Config = Type{
		Source:    path,
		Namespace: Config.Namespace,
		Data:      data}

	return Config, nil
}

// get traverses the map using a dotted key path. A namespaced key wins over
// the bare one.
func (cfg *Type) get(kspec string) (any, error) {
	if len(cfg.Data) == 0 && cfg.Source != "" {
		_, _ = Load(cfg.Source)
	}

	candidateKeys := []string{kspec}
	if cfg.Namespace != "" {
		candidateKeys = []string{cfg.Namespace + "." + kspec, kspec}
	}

	for _, key := range candidateKeys {
		var current interface{} = Config.Data

		success := true
		for _, part := range strings.Split(key, ".") {
			m, ok := current.(map[string]interface{})
			if !ok {
				success = false
				break
			}
			current, ok = m[part]
			if !ok {
				success = false
				break
			}
		}

		if success {
			return current, nil
		}
	}

	return nil, fmt.Errorf("no valid path found among: %v", candidateKeys)
}

func ensureLoaded() {
	if len(Config.Data) == 0 {
		_, _ = Load()
	}
}

func GetString(key string, defaultValue ...string) (string, error) {
	ensureLoaded()

	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", errors.New("value is not a string")
	}

	return s, nil
}

func GetInt(key string, defaultValue ...int) (int, error) {
	ensureLoaded()

	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	// YAML numbers may be unmarshaled as int/float64 depending on content.
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, errors.New("value is not an int")
	}
}

// GetStringSlice reads a list of strings. A single string is a one element
// list.
func GetStringSlice(key string, defaultValue ...[]string) ([]string, error) {
	ensureLoaded()

	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return nil, err
	}

	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("value at %s is not a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("value is not a list of strings")
	}
}

// GetDuration reads a duration such as "250ms". Bare integers are taken as
// milliseconds.
func GetDuration(key string, defaultValue ...time.Duration) (time.Duration, error) {
	ensureLoaded()

	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not a duration: %w", key, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	default:
		return 0, errors.New("value is not a duration")
	}
}

// Interpreters decodes the interpreters list. Entries without a root are an
// error; a missing name defaults to the root's base name.
func Interpreters() ([]interp.Interpreter, error) {
	ensureLoaded()

	raw, err := Config.get("interpreters")
	if err != nil {
		return nil, nil
	}

	// Round-trip through yaml so the struct tags do the decoding.
	b, err := yaml.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var specs []InterpreterSpec
	if err := yaml.Unmarshal(b, &specs); err != nil {
		return nil, fmt.Errorf("interpreters: %w", err)
	}

	out := make([]interp.Interpreter, 0, len(specs))
	for n, s := range specs {
		if s.Root == "" {
			return nil, fmt.Errorf("interpreters[%d]: root is required", n)
		}
		if s.Name == "" {
			s.Name = filepath.Base(strings.TrimSuffix(s.Root, "/"))
		}
		i := interp.New(s.Name, s.Root)
		i.Region = s.Region
		out = append(out, i)
	}
	return out, nil
}

func getConfigPath() (string, error) {
	if env := os.Getenv("LBCTL_CFG"); env != "" {
		fileInfo, err := os.Stat(env)
		if err != nil {
			return "", fmt.Errorf("config file not found: %s", env)
		}
		if fileInfo.IsDir() {
			return "", fmt.Errorf("LBCTL_CFG points to a directory: %s", env)
		}
		log.Debugf("using config file: %s", env)
		return env, nil
	}

	var candidates []string = []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, FileName)
		if fileInfo, err := os.Stat(file); err == nil {
			if !fileInfo.IsDir() {
				log.Debugf("using config file: %s", file)
				return file, nil
			}
		}
	}
	return "", fmt.Errorf("no config file found in standard locations")
}
