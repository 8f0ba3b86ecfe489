package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/Combine-Capital/pgcache/pkg/cache"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"resty.dev/v3"
)

const (
	contentTypeBytes = "application/octet-stream"
	contentTypeText  = "text/plain; charset=utf-8"
)

func entryPath(key string) string {
	return "/v1/cache/" + url.PathEscape(key)
}

// Get returns the value stored under key. A missing or expired entry
// returns ok false and a nil error.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, false, err
	}
	body, err := c.do(ctx, "get", http.MethodGet, entryPath(key), func(r *resty.Request) {
		r.SetHeader("Accept", contentTypeBytes)
	})
	if errors.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if body == nil {
		body = []byte{}
	}
	return body, true, nil
}

// GetString is Get for values stored as UTF-8 text.
func (c *Client) GetString(ctx context.Context, key string) (string, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return "", false, err
	}
	body, err := c.do(ctx, "get", http.MethodGet, entryPath(key), func(r *resty.Request) {
		r.SetHeader("Accept", "text/plain")
	})
	if errors.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(body), true, nil
}

// Set stores value under key with the given expiration.
func (c *Client) Set(ctx context.Context, key string, value []byte, exp cache.Expiration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if value == nil {
		return errors.NewInvalidInput("value", "must not be nil")
	}
	return c.put(ctx, key, value, contentTypeBytes, exp)
}

// SetString stores value as UTF-8 text.
func (c *Client) SetString(ctx context.Context, key, value string, exp cache.Expiration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if !utf8.ValidString(value) {
		return errors.NewInvalidInput("value", "must be valid UTF-8")
	}
	return c.put(ctx, key, []byte(value), contentTypeText, exp)
}

func (c *Client) put(ctx context.Context, key string, value []byte, contentType string, exp cache.Expiration) error {
	ttl, sliding, at := exp.Format()
	_, err := c.do(ctx, "set", http.MethodPut, entryPath(key), func(r *resty.Request) {
		r.SetHeader("Content-Type", contentType).SetBody(value)
		for name, v := range map[string]string{"ttl": ttl, "sliding": sliding, "at": at} {
			if v != "" {
				r.SetQueryParam(name, v)
			}
		}
	})
	return err
}

// Remove deletes the entry stored under key. Removing a missing key succeeds.
func (c *Client) Remove(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	_, err := c.do(ctx, "remove", http.MethodDelete, entryPath(key), nil)
	return err
}

// Refresh extends a live sliding entry by the server's sliding window.
func (c *Client) Refresh(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	_, err := c.do(ctx, "refresh", http.MethodPost, entryPath(key)+"/refresh", nil)
	return err
}

// PurgeExpired asks the server to delete expired entries and returns how
// many it removed.
func (c *Client) PurgeExpired(ctx context.Context) (int64, error) {
	body, err := c.do(ctx, "purge", http.MethodPost, "/v1/cache/purge", nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		Purged int64 `json:"purged"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, errors.NewPermanent("malformed purge response", err)
	}
	return out.Purged, nil
}

// Check reports whether the server is ready.
func (c *Client) Check(ctx context.Context) error {
	_, err := c.do(ctx, "check", http.MethodGet, "/healthz", nil)
	return err
}
