package stabledb

import (
	"errors"
	"testing"
)

func TestMsgPack_RoundTrip(t *testing.T) {
	codec := MsgPack[Note]{}
	for _, n := range []Note{
		{},
		{ID: 1, Title: "hello", Body: "world"},
		{ID: 1<<64 - 1, Title: "", Body: "unicode ☃ and \x00 bytes"},
	} {
		raw := must(codec.Encode(nil, &n))
		var got Note
		success(t, codec.Decode(raw, &got))
		deepEqual(t, got, n)
	}
}

func TestMsgPack_DecodeResetsValue(t *testing.T) {
	codec := MsgPack[Note]{}
	raw := must(codec.Encode(nil, &Note{ID: 5}))
	got := Note{Title: "stale"}
	success(t, codec.Decode(raw, &got))
	deepEqual(t, got, Note{ID: 5})
}

func TestMsgPack_DecodeError(t *testing.T) {
	var got Note
	err := MsgPack[Note]{}.Decode([]byte{0xc1}, &got)
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, wanted *DataError", err)
	}
}

func TestUint64LE(t *testing.T) {
	v := uint64(0x0102030405060708)
	raw := must(Uint64LE{}.Encode([]byte{0xFF}, &v))
	deepEqual(t, raw, []byte{0xFF, 8, 7, 6, 5, 4, 3, 2, 1})

	var got uint64
	success(t, Uint64LE{}.Decode(raw[1:], &got))
	deepEqual(t, got, v)

	if err := (Uint64LE{}).Decode(raw[:3], &got); err == nil {
		t.Fatalf("Decode(3 bytes) succeeded, wanted error")
	}
}
