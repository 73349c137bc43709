//go:build wasm

package udfguest

//go:wasm-module env
//export log_debug
func hostLogDebug(s string)

//go:wasm-module env
//export kv_get
func hostKVGet(ptr, length uint32) uint64

//go:wasm-module env
//export kv_set
func hostKVSet(ptr, length uint32) uint64

//go:wasm-module env
//export kv_del
func hostKVDel(ptr, length uint32) uint64

//go:wasm-module env
//export kv_exists
func hostKVExists(ptr, length uint32) uint64

//go:wasm-module env
//export kv_keys
func hostKVKeys(ptr, length uint32) uint64
