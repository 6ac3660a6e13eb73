// Package configutil reads json5 configuration with local overrides.
// Every config in the repo follows the same convention: <name>.json5
// checked in, <name>.local.json5 ignored by git and merged on top for
// credentials and per-machine paths.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// readInto parses one file into out, reporting whether the file
// existed at all.
func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json5.Unmarshal(contents, out); err != nil {
		return true, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}

// ReadConfig loads <name> and merges <name>.local.<ext> over it. If
// neither file exists the error is os.ErrNotExist, which callers that
// treat configuration as optional check for.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := readInto(name, &out)
	if err != nil {
		return out, err
	}

	localPath := localVariant(name)
	var local T
	foundLocal, err := readInto(localPath, &local)
	if err != nil {
		return out, err
	}
	if foundLocal {
		if err := mergo.Merge(&out, local, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks from the working directory up to the
// filesystem root looking for the named config. Tools run from
// anywhere inside the repo and still find the checked-in file.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if !os.IsNotExist(err) {
			return config, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}
