package host

import (
	"context"
	"testing"

	"github.com/modware/udfhost/pkg/wire"
)

// TestKVKeysReply verifies prefix listing through the kv_keys reply shape.
func TestKVKeysReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, err := New(ctx, Options{EnableKV: true})
	if err != nil {
		t.Fatalf("host setup failed: %v", err)
	}
	defer h.Close(ctx)

	h.KV().Set("user:b", wire.Int64(2))
	h.KV().Set("user:a", wire.Int64(1))
	h.KV().Set("other", wire.Int64(3))

	reply := h.kvKeysReply("user:")

	okVal, found := reply.Lookup("ok")
	if !found || !okVal.Equal(wire.Bool(true)) {
		t.Fatalf("expected ok reply, got %s", reply)
	}
	keys, found := reply.Lookup("keys")
	if !found {
		t.Fatalf("reply must carry a keys field: %s", reply)
	}
	want := wire.Array(wire.String("user:a"), wire.String("user:b"))
	if !keys.Equal(want) {
		t.Errorf("expected %s, got %s", want, keys)
	}

	all, _ := h.kvKeysReply("").Lookup("keys")
	if len(all.AsArray()) != 3 {
		t.Errorf("empty prefix must list every key, got %s", all)
	}
}

// TestKVKeysReplyCapabilityGated verifies the disabled-capability reply.
func TestKVKeysReplyCapabilityGated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, err := New(ctx, Options{})
	if err != nil {
		t.Fatalf("host setup failed: %v", err)
	}
	defer h.Close(ctx)

	h.KV().Set("hidden", wire.Int64(1))

	reply := h.kvKeysReply("")

	okVal, found := reply.Lookup("ok")
	if !found || !okVal.Equal(wire.Bool(false)) {
		t.Fatalf("disabled capability must report failure, got %s", reply)
	}
	if _, found := reply.Lookup("keys"); found {
		t.Error("disabled capability must not leak keys")
	}
	if _, found := reply.Lookup("error"); !found {
		t.Error("disabled capability reply must carry an error field")
	}
}
