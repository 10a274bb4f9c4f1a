// Package env reads settings from process environment variables, optionally
// overlaid with a dotenv file that is re-read on every lookup.
package env

import (
	"context"
	"fqlrun/internal/types"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	SecretVar   = "FAUNA_SECRET"
	EndpointVar = "FAUNA_ENDPOINT"
)

// VarName maps a settings key to its environment variable name.
func VarName(key string) string {
	switch key {
	case types.SecretKey:
		return SecretVar
	case types.EndpointKey:
		return EndpointVar
	}
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Source is a SettingsSource over the environment. It cannot observe
// changes, so Changes returns nil.
type Source struct {
	dotenv string
	lookup func(string) (string, bool)
}

// New returns a source reading the process environment. When dotenvPath is
// non-empty, values in that file take precedence over the process environment.
func New(dotenvPath string) *Source {
	return &Source{dotenv: dotenvPath, lookup: os.LookupEnv}
}

func (s *Source) Get(_ context.Context, key string) (string, bool, error) {
	name := VarName(key)
	if s.dotenv != "" {
		vals, err := godotenv.Read(s.dotenv)
		if err != nil && !os.IsNotExist(err) {
			return "", false, types.Err(types.ErrSettingsAccess, err, "read %s", s.dotenv)
		}
		if v, ok := vals[name]; ok {
			return v, true, nil
		}
	}
	v, ok := s.lookup(name)
	return v, ok, nil
}

// Set writes key into the dotenv file. Without a dotenv file it sets the
// process environment.
func (s *Source) Set(_ context.Context, key, value string) error {
	name := VarName(key)
	if s.dotenv == "" {
		return os.Setenv(name, value)
	}
	vals, err := godotenv.Read(s.dotenv)
	if err != nil {
		if !os.IsNotExist(err) {
			return types.Err(types.ErrSettingsAccess, err, "read %s", s.dotenv)
		}
		vals = map[string]string{}
	}
	vals[name] = value
	if err := godotenv.Write(vals, s.dotenv); err != nil {
		return types.Err(types.ErrSettingsAccess, err, "write %s", s.dotenv)
	}
	return nil
}

func (s *Source) Changes() <-chan []string { return nil }

func (s *Source) Close() error { return nil }
