package stabledb

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrRecordTooLarge  = errors.New("record too large")
	ErrCellWriteFailed = errors.New("cell write failed")
	ErrDBFailed        = errors.New("database failed earlier and refuses further calls")
)

// NotFoundError reports an operation on an identifier without a record.
type NotFoundError struct {
	Kind string
	ID   uint64
	Op   string
}

func (e *NotFoundError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s with id=%d does not exist", e.Kind, e.ID)
	}
	return fmt.Sprintf("could not %s %s with id=%d: not found", e.Op, e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RecordTooLargeError reports a record whose encoding exceeds the store's
// declared maximum size. Nothing is written when it is returned.
type RecordTooLargeError struct {
	Key  uint64
	Size int
	Max  int
}

func (e *RecordTooLargeError) Error() string {
	return fmt.Sprintf("record %d: encoded size %d exceeds maximum of %d bytes", e.Key, e.Size, e.Max)
}

func (e *RecordTooLargeError) Unwrap() error {
	return ErrRecordTooLarge
}

// CellError reports a failure to persist a cell value.
type CellError struct {
	Size int
	Err  error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%v: %d-byte value: %v", ErrCellWriteFailed, e.Size, e.Err)
}

func (e *CellError) Unwrap() []error {
	return []error{ErrCellWriteFailed, e.Err}
}

// DataError reports persisted bytes that cannot be decoded.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func (p panicked) Unwrap() error {
	err, _ := p.reason.(error)
	return err
}

func safelyCall(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn()
}
