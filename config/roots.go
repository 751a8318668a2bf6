package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/lexandro/missile/store"
)

// AddRoots appends remote roots for a repository to dir/config.yaml and
// returns the repository's roots afterwards. Only the file is read and
// written; environment and flag values never leak into it.
func AddRoots(dir string, id string, roots ...string) ([]string, error) {
	for _, root := range roots {
		if !path.IsAbs(root) {
			return nil, &ConfigError{Field: "roots", Message: fmt.Sprintf("remote root %q must be absolute", root)}
		}
	}

	file := filepath.Join(dir, FileName)
	var cfg Config
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	i := slices.IndexFunc(cfg.Repositories, func(r RepositoryConfig) bool { return r.ID == id })
	if i < 0 {
		cfg.Repositories = append(cfg.Repositories, RepositoryConfig{ID: id})
		i = len(cfg.Repositories) - 1
	}
	for _, root := range roots {
		root = path.Clean(root)
		if !slices.Contains(cfg.Repositories[i].Roots, root) {
			cfg.Repositories[i].Roots = append(cfg.Repositories[i].Roots, root)
		}
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", file, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := store.WriteFileAtomic(file, out); err != nil {
		return nil, err
	}
	return slices.Clone(cfg.Repositories[i].Roots), nil
}
