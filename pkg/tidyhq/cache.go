package tidyhq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Cache is a point-in-time snapshot of the membership database,
// persisted as JSON between runs.
type Cache struct {
	Time        time.Time               `json:"time"`
	Org         Organization            `json:"org"`
	Contacts    []Contact               `json:"contacts"`
	Groups      map[string]Group        `json:"groups"`
	Memberships map[string][]Membership `json:"memberships"`
	Invoices    map[string][]Invoice    `json:"invoices"`
}

// Stale reports whether the snapshot is older than the expiry window.
func (c *Cache) Stale(expiry time.Duration) bool {
	return time.Since(c.Time) > expiry
}

// Fresh returns a usable snapshot: the provided one when still inside
// the expiry window, else the on-disk copy, else a full refresh from the
// live API. force skips straight to the refresh.
func Fresh(ctx context.Context, client *Client, path string, expiry time.Duration, force bool, current *Cache) (*Cache, error) {
	if current != nil && !force && !current.Stale(expiry) {
		return current, nil
	}

	if !force {
		cache, err := loadCacheFile(path)
		if err == nil && !cache.Stale(expiry) {
			return cache, nil
		}

		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			client.logger.Warn("Ignoring unreadable cache file", "path", path, "error", err)
		}
	}

	return Refresh(ctx, client, path)
}

// Refresh pulls a full snapshot from the live API and persists it.
func Refresh(ctx context.Context, client *Client, path string) (*Cache, error) {
	cache := &Cache{Time: time.Now()}

	org, err := client.Organization(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organization: %w", err)
	}

	cache.Org = *org

	if cache.Contacts, err = client.Contacts(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}

	if cache.Groups, err = client.Groups(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}

	if cache.Memberships, err = client.Memberships(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch memberships: %w", err)
	}

	if cache.Invoices, err = client.Invoices(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	if err := cache.save(path); err != nil {
		return nil, err
	}

	client.logger.Info("Membership snapshot refreshed",
		"contacts", len(cache.Contacts),
		"groups", len(cache.Groups))

	return cache, nil
}

func (c *Cache) save(path string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", path, err)
	}

	return nil
}

func loadCacheFile(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file %s: %w", path, err)
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file %s: %w", path, err)
	}

	return &cache, nil
}
