package kv

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Content is a value read from the store: either UTF-8 text or raw bytes.
// Conversions to typed values are explicit and fail with a typed error on
// shape mismatch rather than coercing.
type Content struct {
	text   string
	binary []byte
	isUTF8 bool
}

// UTF8 wraps a text value
func UTF8(s string) Content {
	return Content{text: s, isUTF8: true}
}

// Binary wraps a raw byte value
func Binary(b []byte) Content {
	return Content{binary: b}
}

// FromBytes classifies raw store bytes: valid UTF-8 becomes text content,
// anything else stays binary.
func FromBytes(b []byte) Content {
	if utf8.Valid(b) {
		return UTF8(string(b))
	}
	return Binary(b)
}

// IsUTF8 reports whether the content is text
func (c Content) IsUTF8() bool {
	return c.isUTF8
}

// Text returns the content as UTF-8 text
func (c Content) Text() (string, error) {
	if !c.isUTF8 {
		return "", ErrBinaryContent
	}
	return c.text, nil
}

// Bytes returns the raw content
func (c Content) Bytes() []byte {
	if c.isUTF8 {
		return []byte(c.text)
	}
	return c.binary
}

// Bool parses the content as a boolean encoding
func (c Content) Bool() (bool, error) {
	s, err := c.Text()
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("parse bool %q: %w", s, err)
	}
	return b, nil
}

// Uint parses the content as unsigned decimal text
func (c Content) Uint() (uint64, error) {
	s, err := c.Text()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse uint %q: %w", s, err)
	}
	return n, nil
}
