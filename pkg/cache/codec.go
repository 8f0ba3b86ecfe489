package cache

import (
	"context"
	"unicode/utf8"

	"github.com/Combine-Capital/pgcache/pkg/async"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
)

func (c *DistributedCache) GetStringAsync(ctx context.Context, key string) *async.Future[*string] {
	raw := c.GetAsync(ctx, key)
	return async.Run(ctx, func(context.Context) (*string, error) {
		value, err := raw.Wait()
		if err != nil || value == nil {
			return nil, err
		}
		s := string(value)
		return &s, nil
	})
}

func (c *DistributedCache) GetString(ctx context.Context, key string) (string, bool, error) {
	s, err := c.GetStringAsync(ctx, key).Wait()
	if err != nil || s == nil {
		return "", false, err
	}
	return *s, true, nil
}

func (c *DistributedCache) SetStringAsync(ctx context.Context, key, value string, exp Expiration) *async.Future[struct{}] {
	if !utf8.ValidString(value) {
		return async.Completed(struct{}{}, errors.NewInvalidInput("value", "must be valid UTF-8"))
	}
	return c.SetAsync(ctx, key, []byte(value), exp)
}

func (c *DistributedCache) SetString(ctx context.Context, key, value string, exp Expiration) error {
	_, err := c.SetStringAsync(ctx, key, value, exp).Wait()
	return err
}

// GetMessage reads key and unmarshals it into dest. It reports false when
// the key is absent; dest is left untouched in that case.
func GetMessage(ctx context.Context, c Cache, key string, dest proto.Message) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := proto.Unmarshal(data, dest); err != nil {
		return false, errors.NewPermanent("failed to unmarshal cached message", err)
	}
	return true, nil
}

// SetMessage marshals msg with protobuf and stores it under key.
func SetMessage(ctx context.Context, c Cache, key string, msg proto.Message, exp Expiration) error {
	if msg == nil {
		return errors.NewInvalidInput("value", "must not be nil")
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return errors.NewPermanent("failed to marshal message", err)
	}
	if data == nil {
		data = []byte{}
	}
	return c.Set(ctx, key, data, exp)
}

// GetObject reads key and decodes it with MessagePack into dest.
func GetObject(ctx context.Context, c Cache, key string, dest interface{}) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, errors.NewPermanent("failed to decode cached object", err)
	}
	return true, nil
}

// SetObject encodes v with MessagePack and stores it under key.
func SetObject(ctx context.Context, c Cache, key string, v interface{}, exp Expiration) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return errors.NewInvalidInputWithCause("value", "cannot be encoded", err)
	}
	return c.Set(ctx, key, data, exp)
}
