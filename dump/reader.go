package dump

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// maxRecord bounds the combined key and value length of a single record.
const maxRecord = 1 << 30

// ErrCorruptRecord is returned for a record whose length header cannot be right.
var ErrCorruptRecord = errors.New("dump: corrupt record")

type Reader struct {
	file io.Closer
	br   *bufio.Reader
}

// Open returns a Reader over the dump file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dump %s", path)
	}
	return NewReader(f), nil
}

func NewReader(file io.Reader) *Reader {
	r := &Reader{}
	r.file, _ = file.(io.Closer)
	r.br = bufio.NewReader(snappy.NewReader(file))
	return r
}

// Next returns the next record. It returns io.EOF once the stream is exhausted.
// The returned slices are freshly allocated and owned by the caller.
func (r *Reader) Next() (key, val []byte, err error) {
	keyLen, err := binary.ReadUvarint(r.br)
	if err != nil {
		if err == io.EOF {
			return nil, nil, io.EOF
		}
		return nil, nil, errors.Wrap(err, "read key length")
	}
	valLen, err := binary.ReadUvarint(r.br)
	if err != nil {
		return nil, nil, errors.Wrap(noEOF(err), "read value length")
	}

	if keyLen > maxRecord || valLen > maxRecord-keyLen {
		return nil, nil, errors.Wrapf(ErrCorruptRecord, "lengths %d and %d", keyLen, valLen)
	}

	buf := make([]byte, keyLen+valLen)
	if _, err = io.ReadFull(r.br, buf); err != nil {
		return nil, nil, errors.Wrap(noEOF(err), "read record")
	}
	return buf[:keyLen:keyLen], buf[keyLen:], nil
}

// a record cut short is corruption, not the end of the dump
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) Close() error {
	r.br = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
