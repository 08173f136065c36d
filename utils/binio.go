package utils

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Little-endian length-prefixed primitives shared by every serialized
// index file.

func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("ReadUint64: short read: %w", ErrFormat)
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func WriteUint64Slice(w io.Writer, vs []uint64) error {
	if err := WriteUint64(w, uint64(len(vs))); err != nil {
		return err
	}
	buf := make([]byte, 8*1024)
	for off := 0; off < len(vs); {
		n := 0
		for ; n < 1024 && off+n < len(vs); n++ {
			binary.LittleEndian.PutUint64(buf[8*n:], vs[off+n])
		}
		if _, err := w.Write(buf[:8*n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}

func ReadUint64Slice(r io.Reader) ([]uint64, error) {
	n, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	vs := make([]uint64, n)
	buf := make([]byte, 8*1024)
	for off := uint64(0); off < n; {
		cnt := uint64(1024)
		if n-off < cnt {
			cnt = n - off
		}
		if _, err := io.ReadFull(r, buf[:8*cnt]); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("ReadUint64Slice: short read: %w", ErrFormat)
			}
			return nil, err
		}
		for i := uint64(0); i < cnt; i++ {
			vs[off+i] = binary.LittleEndian.Uint64(buf[8*i:])
		}
		off += cnt
	}
	return vs, nil
}

func WriteBytes(w io.Writer, bs []byte) error {
	if err := WriteUint64(w, uint64(len(bs))); err != nil {
		return err
	}
	_, err := w.Write(bs)
	return err
}

func ReadBytes(r io.Reader) ([]byte, error) {
	n, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	bs := make([]byte, n)
	if _, err := io.ReadFull(r, bs); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("ReadBytes: short read: %w", ErrFormat)
		}
		return nil, err
	}
	return bs, nil
}
