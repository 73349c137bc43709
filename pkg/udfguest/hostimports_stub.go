//go:build !wasm

// This file just contains stubs for the WASM imports. to avoid linter complains.
package udfguest

func hostLogDebug(_ string) {}

func hostKVGet(_, _ uint32) uint64 { return 0 }

func hostKVSet(_, _ uint32) uint64 { return 0 }

func hostKVDel(_, _ uint32) uint64 { return 0 }

func hostKVExists(_, _ uint32) uint64 { return 0 }

func hostKVKeys(_, _ uint32) uint64 { return 0 }
