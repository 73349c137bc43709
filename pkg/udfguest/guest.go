package udfguest

import (
	"fmt"

	"github.com/modware/udfhost/pkg/wire"
)

// DecodeArgs splits one argument buffer into arity consecutive values.
func DecodeArgs(data []byte, arity int) ([]wire.Value, error) {
	args := make([]wire.Value, 0, arity)
	offset := 0
	for i := 0; i < arity; i++ {
		v, n, err := wire.Decode(data, offset)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		args = append(args, v)
		offset += n
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after %d arguments", len(data)-offset, arity)
	}

	return args, nil
}

// ReadArgs reads and decodes an argument buffer from linear memory.
func ReadArgs(ptr, length uint32, arity int) ([]wire.Value, error) {
	return DecodeArgs(ReadBytes(ptr, length), arity)
}

// EncodeResult encodes a value into fresh memory and returns the packed
// region for the host to read.
func EncodeResult(v wire.Value) uint64 {
	data := wire.EncodeValue(v)
	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	return wire.PackBuffer(ptr, uint32(len(data)))
}

// SignatureTable encodes a signature table into fresh memory and returns
// the packed region. Guests call this from their metadata export.
func SignatureTable(sigs ...wire.FunctionSignature) uint64 {
	data := wire.EncodeSignatures(sigs)
	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	return wire.PackBuffer(ptr, uint32(len(data)))
}
