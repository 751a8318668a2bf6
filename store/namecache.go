package store

import (
	"fmt"
	"sync"
	"time"
)

// Listing is one repository's cached remote listing.
type Listing struct {
	// Paths holds the remote paths in enumeration order.
	Paths       []string  `json:"paths"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// NameCache persists remote listings per repository as
// {repo: {"paths": [remotePath, ...], "refreshed_at": time}}.
type NameCache struct {
	mu   sync.Mutex
	path string
	data map[string]Listing
}

// OpenNameCache creates the cache file if needed and loads it.
func OpenNameCache(path string) (*NameCache, error) {
	c := &NameCache{path: path, data: make(map[string]Listing)}
	if err := EnsureJSONFile(path, map[string]Listing{}); err != nil {
		return nil, err
	}
	if err := ReadJSON(path, &c.data); err != nil {
		return nil, err
	}
	if c.data == nil {
		c.data = make(map[string]Listing)
	}
	return c, nil
}

// Get returns the cached listing for repo. A listing without paths counts as absent.
func (c *NameCache) Get(repo string) (Listing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	listing, ok := c.data[repo]
	if !ok || len(listing.Paths) == 0 {
		return Listing{}, false
	}
	return listing, true
}

// Put replaces the listing for repo and saves the whole cache.
func (c *NameCache) Put(repo string, listing Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[repo] = listing
	if err := WriteJSONAtomic(c.path, c.data); err != nil {
		return fmt.Errorf("saving name cache: %w", err)
	}
	return nil
}

// Drop removes repo from the cache and saves.
func (c *NameCache) Drop(repo string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[repo]; !ok {
		return nil
	}
	delete(c.data, repo)
	if err := WriteJSONAtomic(c.path, c.data); err != nil {
		return fmt.Errorf("saving name cache: %w", err)
	}
	return nil
}
