package config

import (
	"github.com/Combine-Capital/pgcache/pkg/errors"
)

// Targets resolves the read and write connection strings for the cache.
//
// The primary connection string falls back to the write string, then the
// read string. Writes fall back to the primary, and reads fall back to the
// resolved write target. When nothing is set a configuration error is returned.
func (c CacheConfig) Targets() (read, write string, err error) {
	primary := c.ConnectionString
	if primary == "" {
		primary = c.WriteConnectionString
	}
	if primary == "" {
		primary = c.ReadConnectionString
	}
	if primary == "" {
		return "", "", errors.NewInvalidInput("cache.connection_string", "PostgreSQL cache connection string is missing")
	}

	write = c.WriteConnectionString
	if write == "" {
		write = primary
	}

	read = c.ReadConnectionString
	if read == "" {
		read = write
	}

	return read, write, nil
}

// SplitTargets reports whether reads and writes resolve to different connection strings.
func (c CacheConfig) SplitTargets() bool {
	read, write, err := c.Targets()
	return err == nil && read != write
}
