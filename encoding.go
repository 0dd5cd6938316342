package stabledb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts values to and from their persisted byte form.
type Codec[T any] interface {
	// Encode appends the encoding of *v to buf.
	Encode(buf []byte, v *T) ([]byte, error)

	// Decode replaces *v with the value encoded in data.
	Decode(data []byte, v *T) error
}

// MsgPack encodes values as MessagePack, using struct tags of
// github.com/vmihailenco/msgpack. Map keys are sorted, so equal values
// always produce equal bytes.
type MsgPack[T any] struct{}

func (MsgPack[T]) Encode(buf []byte, v *T) ([]byte, error) {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return buf, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}
	return bb.Buf, nil
}

func (MsgPack[T]) Decode(data []byte, v *T) error {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	var zero T
	*v = zero
	err := dec.Decode(v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return dataErrf(data, 0, err, "failed to decode msgpack into %T", v)
	}
	return nil
}

// Uint64LE encodes a uint64 as 8 little-endian bytes.
type Uint64LE struct{}

func (Uint64LE) Encode(buf []byte, v *uint64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(buf, *v), nil
}

func (Uint64LE) Decode(data []byte, v *uint64) error {
	if len(data) != 8 {
		return dataErrf(data, 0, nil, "invalid uint64: %d bytes", len(data))
	}
	*v = binary.LittleEndian.Uint64(data)
	return nil
}
