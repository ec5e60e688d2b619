// Package caseextract provides shared input-file helpers for the
// case-definition extraction tools. Journal dumps and patient flat files are
// frequently handed around compressed, so every input path is opened through
// Open, which sniffs for known compression signatures.
package caseextract

import (
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type compression byte

const (
	compressionNone compression = iota
	compressionGzip
	compressionZip
	compressionXZ
	compressionZ
	compressionBZip2
)

var compressionSigs = map[compression][]byte{
	compressionGzip:  {0x1f, 0x8b, 0x08},
	compressionZip:   {0x50, 0x4b, 0x03, 0x04},
	compressionXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	compressionZ:     {0x1f, 0x9d},
	compressionBZip2: {0x42, 0x5a, 0x68},
}

// Open opens path (with ~ expanded) for reading, transparently decompressing
// gzip, zip, xz, zlib and bzip2 inputs. Closing the returned reader closes the
// underlying file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return nil, pfx.Err(err)
	}

	r, err := maybeDecompress(f)
	if err != nil {
		f.Close()
		return nil, pfx.Err(err)
	}

	return &inputFile{Reader: r, file: f}, nil
}

func detectCompression(r io.Reader) (compression, error) {
	buff := make([]byte, 6)
	if _, err := io.ReadFull(r, buff); err != nil {
		// Tiny files can't hold a compression signature but are still
		// legitimate uncompressed inputs.
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return compressionNone, nil
		}
		return compressionNone, err
	}

Outer:
	for comp, sig := range compressionSigs {
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return comp, nil
	}

	return compressionNone, nil
}

func maybeDecompress(f *os.File) (io.Reader, error) {
	comp, err := detectCompression(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch comp {
	case compressionGzip:
		return gzip.NewReader(f)
	case compressionZip:
		return zipstream.NewReader(f), nil
	case compressionBZip2:
		return bzip2.NewReader(f), nil
	case compressionXZ:
		return xz.NewReader(f, 0)
	case compressionZ:
		return zlib.NewReader(f)
	}

	return f, nil
}

// inputFile ties the lifetime of the (possibly wrapped) reader to the
// underlying file handle.
type inputFile struct {
	io.Reader
	file *os.File
}

func (c *inputFile) Close() error {
	return c.file.Close()
}
