/*
Package dump exports ordered key/value pairs to a snappy-compressed stream and reads them back.

Each record is keyLen (uvarint) | valLen (uvarint) | key | val.
The records are written through snappy's framing format, so a dump can be inspected
with any snappy stream tool.
*/
package dump

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// 2 methods -- `Close() error` and `Sync() error`
type syncCloser interface {
	io.Closer
	Sync() error
}

type Writer struct {
	file  io.Writer
	sw    *snappy.Writer
	buf   *bytes.Buffer
	count int
}

// Create truncates or creates the file at path and returns a Writer that owns it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create dump %s", path)
	}
	return NewWriter(f), nil
}

func NewWriter(file io.Writer) *Writer {
	return &Writer{
		file: file,
		sw:   snappy.NewBufferedWriter(file),
		buf:  bytes.NewBuffer(make([]byte, 0, 1024)),
	}
}

// use byte slice as an in-mem staging area for assembling a record
func (w *Writer) scratchBuf(needed int) []byte {
	available := w.buf.Available()
	if needed > available {
		w.buf.Grow(needed)
	}
	buf := w.buf.AvailableBuffer()
	return buf[:needed]
}

// Add appends one record. Keys are expected in ascending order, but that is not checked.
func (w *Writer) Add(key, val []byte) error {
	keyLen, valLen := len(key), len(val)
	needed := 2*binary.MaxVarintLen64 + keyLen + valLen
	buf := w.scratchBuf(needed)

	n := binary.PutUvarint(buf, uint64(keyLen))
	n += binary.PutUvarint(buf[n:], uint64(valLen))
	copy(buf[n:], key)
	copy(buf[n+keyLen:], val)

	if _, err := w.sw.Write(buf[:n+keyLen+valLen]); err != nil {
		return errors.Wrap(err, "write dump record")
	}
	w.count++
	return nil
}

// Count returns the number of records added so far.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes the compressed stream, then syncs and closes the underlying file when it can.
// The file is closed even when the flush fails.
func (w *Writer) Close() error {
	err := errors.Wrap(w.sw.Close(), "flush dump")
	if f, ok := w.file.(syncCloser); ok {
		// Force OS to flush its I/O buffers and write data to disk.
		if err == nil {
			err = errors.Wrap(f.Sync(), "sync dump")
		}
		err = multierr.Append(err, errors.Wrap(f.Close(), "close dump"))
	} else if c, ok := w.file.(io.Closer); ok {
		err = multierr.Append(err, errors.Wrap(c.Close(), "close dump"))
	}
	w.file = nil
	return err
}
