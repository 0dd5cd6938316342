package stabledb

import (
	"errors"
	"strings"
	"testing"
)

func TestDataError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		if !errors.Is(err, inner) {
			t.Fatalf("errors.Is(err, inner) = false, wanted true")
		}
		s := err.Error()
		if !strings.Contains(s, "oops") || !strings.Contains(s, "inner") || !strings.Contains(s, "(2)") {
			t.Fatalf("err.Error() = %q, wanted message with oops/inner/(2)", s)
		}
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf(data, 0, nil, "oops")
		s := err.Error()
		if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}

func TestCellError_MatchesBothCauses(t *testing.T) {
	err := error(&CellError{Size: 10, Err: growErrf("no room")})
	failsWith(t, err, ErrCellWriteFailed)
	failsWith(t, err, ErrGrowFailed)
	if !strings.Contains(err.Error(), "10-byte") {
		t.Fatalf("err.Error() = %q, wanted the value size", err.Error())
	}
}

func TestRecordTooLargeError(t *testing.T) {
	err := error(&RecordTooLargeError{Key: 3, Size: 2000, Max: 1024})
	failsWith(t, err, ErrRecordTooLarge)
	deepEqual(t, err.Error(), "record 3: encoded size 2000 exceeds maximum of 1024 bytes")
}

func TestSafelyCall(t *testing.T) {
	sentinel := errors.New("sentinel")

	success(t, safelyCall(func() error { return nil }))
	failsWith(t, safelyCall(func() error { return sentinel }), sentinel)

	err := safelyCall(func() error { panic(sentinel) })
	var p panicked
	if !errors.As(err, &p) {
		t.Fatalf("err = %v, wanted panicked", err)
	}
	failsWith(t, err, sentinel)

	err = safelyCall(func() error { panic("plain string") })
	if !errors.As(err, &p) || !strings.Contains(err.Error(), "plain string") {
		t.Fatalf("err = %v, wanted panicked with the reason", err)
	}
}
