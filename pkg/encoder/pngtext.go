package encoder

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ErrNotPNG is returned when the input lacks the PNG signature
var ErrNotPNG = errors.New("not a PNG file")

// maxTextChunk bounds a single text chunk; generation parameters written
// by image tools are a few kilobytes at most
const maxTextChunk = 8 << 20

// ReadPNGText returns the tEXt, zTXt and iTXt fields of a PNG stream.
// Image data is skipped without being decoded. When a keyword repeats the
// first occurrence wins.
func ReadPNGText(r io.Reader) (map[string]string, error) {
	br := bufio.NewReader(r)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return nil, ErrNotPNG
	}

	fields := make(map[string]string)
	var header [8]byte
	for {
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return fields, nil
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(header[:4])
		kind := string(header[4:8])

		switch kind {
		case "tEXt", "zTXt", "iTXt":
			if length > maxTextChunk {
				return nil, fmt.Errorf("%s chunk too large: %d bytes", kind, length)
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return nil, fmt.Errorf("read %s chunk: %w", kind, err)
			}
			key, value, err := parseTextChunk(kind, data)
			if err != nil {
				return nil, err
			}
			if _, seen := fields[key]; !seen {
				fields[key] = value
			}
		case "IEND":
			return fields, nil
		default:
			if _, err := br.Discard(int(length)); err != nil {
				return nil, fmt.Errorf("skip %s chunk: %w", kind, err)
			}
		}

		// CRC
		if _, err := br.Discard(4); err != nil {
			return nil, fmt.Errorf("read %s crc: %w", kind, err)
		}
	}
}

func parseTextChunk(kind string, data []byte) (string, string, error) {
	key, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(key) == 0 {
		return "", "", fmt.Errorf("malformed %s chunk", kind)
	}

	switch kind {
	case "tEXt":
		return string(key), latin1(rest), nil

	case "zTXt":
		if len(rest) < 1 {
			return "", "", fmt.Errorf("malformed zTXt chunk")
		}
		text, err := inflate(rest[1:])
		if err != nil {
			return "", "", fmt.Errorf("zTXt %s: %w", key, err)
		}
		return string(key), latin1(text), nil

	default: // iTXt
		if len(rest) < 2 {
			return "", "", fmt.Errorf("malformed iTXt chunk")
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		// language tag, then translated keyword
		_, rest, ok = bytes.Cut(rest, []byte{0})
		if !ok {
			return "", "", fmt.Errorf("malformed iTXt chunk")
		}
		_, text, ok := bytes.Cut(rest, []byte{0})
		if !ok {
			return "", "", fmt.Errorf("malformed iTXt chunk")
		}
		if compressed {
			var err error
			if text, err = inflate(text); err != nil {
				return "", "", fmt.Errorf("iTXt %s: %w", key, err)
			}
		}
		if !utf8.Valid(text) {
			return "", "", fmt.Errorf("iTXt %s: invalid UTF-8", key)
		}
		return string(key), string(text), nil
	}
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxTextChunk))
}

// latin1 converts ISO 8859-1 bytes to a UTF-8 string
func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
