package host

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/modware/udfhost/pkg/wire"
)

// instantiateEnv builds the "env" host module every guest imports from:
// a debug log sink plus the key/value capability. Requests and replies
// cross the boundary in the same wire format as function arguments.
func (h *Host) instantiateEnv(ctx context.Context, rt wazero.Runtime) error {
	builder := rt.NewHostModuleBuilder(envModule)

	builder.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, ptr, length uint32) {
			data, ok := m.Memory().Read(ptr, length)
			if !ok {
				log.Error().Str("event", "guest_log_oob").Msg("failed to read memory in log_debug")
				return
			}
			log.Debug().
				Str("event", "guest_debug").
				Str("module", m.Name()).
				Str("msg", string(data)).
				Msg("guest debug message")
		}).
		Export("log_debug")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) uint64 {
			key, ok := h.readKey(m, ptr, length, "kv_get")
			if !ok {
				return 0
			}
			if !h.kvEnabled {
				return writeGuestReply(ctx, m, kvDisabledReply())
			}
			v, found := h.kv.Get(key)
			if !found {
				return writeGuestReply(ctx, m, wire.Map(wire.Entry{Key: "ok", Val: wire.Bool(false)}))
			}

			return writeGuestReply(ctx, m, wire.Map(
				wire.Entry{Key: "ok", Val: wire.Bool(true)},
				wire.Entry{Key: "value", Val: v},
			))
		}).
		Export("kv_get")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) uint64 {
			req, ok := h.readValue(m, ptr, length, "kv_set")
			if !ok {
				return 0
			}
			if !h.kvEnabled {
				return writeGuestReply(ctx, m, kvDisabledReply())
			}

			key, keyOK := req.Lookup("key")
			val, valOK := req.Lookup("value")
			if !keyOK || !valOK || key.Kind() != wire.KindString {
				return writeGuestReply(ctx, m, wire.Map(wire.Entry{Key: "ok", Val: wire.Bool(false)}))
			}
			h.kv.Set(key.AsString(), val)
			log.Debug().
				Str("event", "kv_set").
				Str("key", key.AsString()).
				Int("store_size", h.kv.Len()).
				Msg("guest stored value")

			return writeGuestReply(ctx, m, wire.Map(wire.Entry{Key: "ok", Val: wire.Bool(true)}))
		}).
		Export("kv_set")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) uint64 {
			key, ok := h.readKey(m, ptr, length, "kv_del")
			if !ok {
				return 0
			}
			if !h.kvEnabled {
				return writeGuestReply(ctx, m, kvDisabledReply())
			}
			h.kv.Del(key)
			log.Debug().
				Str("event", "kv_del").
				Str("key", key).
				Int("store_size", h.kv.Len()).
				Msg("guest removed value")

			return writeGuestReply(ctx, m, wire.Map(wire.Entry{Key: "ok", Val: wire.Bool(true)}))
		}).
		Export("kv_del")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) uint64 {
			key, ok := h.readKey(m, ptr, length, "kv_exists")
			if !ok {
				return 0
			}
			if !h.kvEnabled {
				return writeGuestReply(ctx, m, kvDisabledReply())
			}

			return writeGuestReply(ctx, m, wire.Map(
				wire.Entry{Key: "ok", Val: wire.Bool(true)},
				wire.Entry{Key: "exists", Val: wire.Bool(h.kv.Exists(key))},
			))
		}).
		Export("kv_exists")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) uint64 {
			prefix, ok := h.readKey(m, ptr, length, "kv_keys")
			if !ok {
				return 0
			}

			return writeGuestReply(ctx, m, h.kvKeysReply(prefix))
		}).
		Export("kv_keys")

	if _, err := builder.Instantiate(ctx); err != nil {
		return err
	}

	return nil
}

// readValue decodes one wire value out of guest memory for a host import.
func (h *Host) readValue(m api.Module, ptr, length uint32, where string) (wire.Value, bool) {
	data, ok := m.Memory().Read(ptr, length)
	if !ok {
		log.Error().Str("event", "hostfunc_oob").Str("import", where).Msg("guest passed out-of-bounds buffer")
		return wire.Value{}, false
	}

	v, err := wire.DecodeValue(data)
	if err != nil {
		log.Error().Str("event", "hostfunc_malformed").Str("import", where).Err(err).Msg("guest passed malformed value")
		return wire.Value{}, false
	}

	return v, true
}

// readKey decodes a string-valued request.
func (h *Host) readKey(m api.Module, ptr, length uint32, where string) (string, bool) {
	v, ok := h.readValue(m, ptr, length, where)
	if !ok {
		return "", false
	}
	if v.Kind() != wire.KindString {
		log.Error().Str("event", "hostfunc_bad_key").Str("import", where).Str("kind", v.Kind().String()).Msg("key must be a string")
		return "", false
	}

	return v.AsString(), true
}

// kvKeysReply builds the kv_keys reply: every stored key with the given
// prefix in lexicographic order.
func (h *Host) kvKeysReply(prefix string) wire.Value {
	if !h.kvEnabled {
		return kvDisabledReply()
	}

	keys := h.kv.Keys(prefix)
	elems := make([]wire.Value, len(keys))
	for i, k := range keys {
		elems[i] = wire.String(k)
	}

	return wire.Map(
		wire.Entry{Key: "ok", Val: wire.Bool(true)},
		wire.Entry{Key: "keys", Val: wire.Array(elems...)},
	)
}

func kvDisabledReply() wire.Value {
	return wire.Map(
		wire.Entry{Key: "ok", Val: wire.Bool(false)},
		wire.Entry{Key: "error", Val: wire.String("kv capability disabled")},
	)
}

// writeGuestReply encodes v, allocates guest memory through the module's own
// allocator and returns the packed region, or 0 when the guest cannot
// receive the reply.
func writeGuestReply(ctx context.Context, m api.Module, v wire.Value) uint64 {
	data := wire.EncodeValue(v)

	allocFn := m.ExportedFunction(allocExport)
	if allocFn == nil {
		log.Error().Str("event", "hostfunc_no_alloc").Str("module", m.Name()).Msg("guest exports no allocator for reply")
		return 0
	}

	results, err := allocFn.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		log.Error().Str("event", "hostfunc_alloc_failed").Err(err).Msg("guest allocator failed for reply")
		return 0
	}

	ptr := api.DecodeU32(results[0])
	if ptr == 0 || !m.Memory().Write(ptr, data) {
		log.Error().Str("event", "hostfunc_write_failed").Msg("failed to write reply into guest memory")
		return 0
	}

	return wire.PackBuffer(ptr, uint32(len(data)))
}
