package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/errors"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestMessageCodec(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	in := wrapperspb.String("quote:AAPL")
	if err := SetMessage(ctx, c, "msg", in, ExpireAfter(time.Minute)); err != nil {
		t.Fatalf("SetMessage() error = %v", err)
	}

	var out wrapperspb.StringValue
	ok, err := GetMessage(ctx, c, "msg", &out)
	if err != nil || !ok {
		t.Fatalf("GetMessage() = (%v, %v)", ok, err)
	}
	if out.GetValue() != "quote:AAPL" {
		t.Errorf("GetMessage() value = %q", out.GetValue())
	}

	ok, err = GetMessage(ctx, c, "missing", &out)
	if ok || err != nil {
		t.Errorf("GetMessage() of missing key = (%v, %v), want (false, nil)", ok, err)
	}

	if err := SetMessage(ctx, c, "empty", &wrapperspb.Int64Value{}, NoExpiration()); err != nil {
		t.Fatalf("SetMessage() of empty message error = %v", err)
	}
	var empty wrapperspb.Int64Value
	if ok, err := GetMessage(ctx, c, "empty", &empty); !ok || err != nil {
		t.Errorf("GetMessage() of empty message = (%v, %v), want present", ok, err)
	}

	if err := SetMessage(ctx, c, "nil", nil, NoExpiration()); !errors.IsInvalidInput(err) {
		t.Errorf("SetMessage(nil) error = %v, want InvalidInput", err)
	}
}

func TestMessageCodecCorruptValue(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "bad", []byte{0xff, 0xff, 0xff}, NoExpiration()); err != nil {
		t.Fatal(err)
	}

	var out wrapperspb.StringValue
	if _, err := GetMessage(ctx, c, "bad", &out); !errors.IsPermanent(err) {
		t.Errorf("GetMessage() error = %v, want Permanent", err)
	}
}

type session struct {
	UserID string
	Roles  []string
	Expiry time.Time
}

func TestObjectCodec(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	in := session{
		UserID: "u-1",
		Roles:  []string{"admin", "viewer"},
		Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := SetObject(ctx, c, "session", in, Sliding(time.Minute)); err != nil {
		t.Fatalf("SetObject() error = %v", err)
	}

	var out session
	ok, err := GetObject(ctx, c, "session", &out)
	if err != nil || !ok {
		t.Fatalf("GetObject() = (%v, %v)", ok, err)
	}
	if out.UserID != in.UserID || len(out.Roles) != 2 || !out.Expiry.Equal(in.Expiry) {
		t.Errorf("GetObject() = %+v, want %+v", out, in)
	}

	if err := c.SetString(ctx, "text", "not msgpack \xc1", NoExpiration()); err == nil {
		t.Fatal("SetString() should reject invalid UTF-8")
	}
	if err := c.Set(ctx, "corrupt", []byte{0xc1}, NoExpiration()); err != nil {
		t.Fatal(err)
	}
	if _, err := GetObject(ctx, c, "corrupt", &out); !errors.IsPermanent(err) {
		t.Errorf("GetObject() error = %v, want Permanent", err)
	}

	if err := SetObject(ctx, c, "chan", make(chan int), NoExpiration()); !errors.IsInvalidInput(err) {
		t.Errorf("SetObject(chan) error = %v, want InvalidInput", err)
	}
}
