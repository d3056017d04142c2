package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

var magic = [4]byte{'N', 'R', 'I', 'X'}

const (
	formatVersion uint32 = 1
	headerSize           = 16

	// maxDim bounds the header's dimension field; real embedding models stay far below it.
	maxDim = 1 << 16
	// preallocFloats caps the up-front allocation taken on trust from a header.
	preallocFloats = 1 << 22
)

// WriteTo encodes the index: magic, version, dim, count, then float32 rows (little-endian).
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	header := make([]byte, headerSize)
	copy(header, magic[:])
	binary.LittleEndian.PutUint32(header[4:], formatVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(f.dim))   //nolint:gosec // dim is validated positive
	binary.LittleEndian.PutUint32(header[12:], uint32(f.Len())) //nolint:gosec // row count fits in uint32
	if _, err := bw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, 4)
	for _, x := range f.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
		if _, err := bw.Write(buf); err != nil {
			return 0, fmt.Errorf("write rows: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	return int64(len(header) + 4*len(f.data)), nil
}

// Read decodes an index written by WriteTo. Rows are decoded as they arrive, so a
// header that promises more rows than the stream holds fails without a large allocation.
func Read(r io.Reader) (*Flat, error) {
	return decode(r, -1)
}

// ReadFile loads an index from path. The file size must match its header.
func ReadFile(path string) (*Flat, error) {
	fh, err := os.Open(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = fh.Close() }()

	st, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index: %w", err)
	}
	f, err := decode(fh, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return f, nil
}

// decode reads an index; size is the total byte length when known, or -1.
func decode(r io.Reader, size int64) (*Flat, error) {
	br := bufio.NewReader(r)
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(header[:4]) != magic {
		return nil, errors.New("not a vector index file (bad magic)")
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != formatVersion {
		return nil, fmt.Errorf("unsupported index version %d", v)
	}
	dim := binary.LittleEndian.Uint32(header[8:])
	count := binary.LittleEndian.Uint32(header[12:])
	if dim == 0 || dim > maxDim {
		return nil, fmt.Errorf("index dimension %d out of range (1..%d)", dim, maxDim)
	}
	// dim <= 2^16 and count < 2^32, so the product fits in int64
	payload := int64(dim) * int64(count) * 4
	if size >= 0 && size != headerSize+payload {
		return nil, fmt.Errorf("index is %d bytes, header declares %d rows of dim %d (%d bytes)",
			size, count, dim, headerSize+payload)
	}

	f, err := New(int(dim))
	if err != nil {
		return nil, err
	}
	f.data = make([]float32, 0, min(int64(dim)*int64(count), preallocFloats))
	row := make([]byte, 4*int(dim))
	for i := range int(count) {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("read row %d of %d (dim %d): %w", i, count, dim, err)
		}
		for j := 0; j < len(row); j += 4 {
			f.data = append(f.data, math.Float32frombits(binary.LittleEndian.Uint32(row[j:])))
		}
	}
	return f, nil
}

// WriteFile writes the index to a temp file next to path and renames it into place.
func WriteFile(path string, f *Flat) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
