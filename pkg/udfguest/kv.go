package udfguest

import "github.com/modware/udfhost/pkg/wire"

// LogDebug sends a debug message to the host log.
func LogDebug(msg string) {
	hostLogDebug(msg)
}

// KVGet fetches a value from the host key/value store.
func KVGet(key string) (wire.Value, bool) {
	reply, ok := callHost(hostKVGet, wire.String(key))
	if !ok {
		return wire.Value{}, false
	}
	v, found := reply.Lookup("value")

	return v, found
}

// KVSet stores a value in the host key/value store.
func KVSet(key string, v wire.Value) bool {
	_, ok := callHost(hostKVSet, wire.Map(
		wire.Entry{Key: "key", Val: wire.String(key)},
		wire.Entry{Key: "value", Val: v},
	))

	return ok
}

// KVDel removes a key from the host key/value store.
func KVDel(key string) bool {
	_, ok := callHost(hostKVDel, wire.String(key))

	return ok
}

// KVKeys lists keys with the given prefix from the host key/value store in
// lexicographic order.
func KVKeys(prefix string) []string {
	reply, ok := callHost(hostKVKeys, wire.String(prefix))
	if !ok {
		return nil
	}
	arr, found := reply.Lookup("keys")
	if !found || arr.Kind() != wire.KindArray {
		return nil
	}

	keys := make([]string, 0, len(arr.AsArray()))
	for _, v := range arr.AsArray() {
		if v.Kind() == wire.KindString {
			keys = append(keys, v.AsString())
		}
	}

	return keys
}

// KVExists reports whether a key is present in the host key/value store.
func KVExists(key string) bool {
	reply, ok := callHost(hostKVExists, wire.String(key))
	if !ok {
		return false
	}
	exists, found := reply.Lookup("exists")

	return found && exists.Kind() == wire.KindBool && exists.AsBool()
}

// callHost runs one key/value import round trip. The request is encoded
// into guest memory, the packed reply region is decoded and its ok flag
// checked.
func callHost(imp func(ptr, length uint32) uint64, req wire.Value) (wire.Value, bool) {
	data := wire.EncodeValue(req)
	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	packed := imp(ptr, uint32(len(data)))
	if packed == 0 {
		return wire.Value{}, false
	}

	replyPtr, replyLen := wire.UnpackBuffer(packed)
	reply, err := wire.DecodeValue(ReadBytes(replyPtr, replyLen))
	if err != nil {
		return wire.Value{}, false
	}

	okVal, found := reply.Lookup("ok")
	if !found || okVal.Kind() != wire.KindBool || !okVal.AsBool() {
		return wire.Value{}, false
	}

	return reply, true
}
