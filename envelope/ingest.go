package envelope

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode"
)

// Indirection marker fields. Both spellings are accepted on input;
// PayloadPathKey is the one this runtime emits.
const (
	PayloadPathKey       = "payload_path"
	PayloadPathKeyLegacy = "payload-path"
)

// IOError reports a failure to read a payload source (stdin or an
// indirected file). Distinct from ParseError so callers can tell "couldn't
// read" from "couldn't understand".
type IOError struct {
	Path string // empty for the primary stream
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("reading hook payload file %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("reading hook payload: %v", e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports malformed JSON at either ingestion hop.
type ParseError struct {
	Path string // empty for the primary stream
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid JSON in hook payload file %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid JSON hook payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read ingests a payload from a byte stream. Empty or all-whitespace input
// is treated as an empty object, since hooks commonly receive no meaningful
// input. A top-level payload_path (or payload-path) field is resolved one
// hop: the referenced file's contents become the effective payload.
func Read(r io.Reader) (*Payload, error) {
	raw, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// ReadFile ingests a payload from a file.
func ReadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()
	return Read(f)
}

// ReadRaw ingests the effective raw JSON document without decoding it into
// the typed Payload. Indirection is resolved; the result is guaranteed to
// be valid JSON.
func ReadRaw(r io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Err: err}
	}

	if allWhitespace(buf) {
		return []byte("{}"), nil
	}
	if !json.Valid(buf) {
		// Produce the decoder's error for context.
		var v any
		err := json.Unmarshal(buf, &v)
		return nil, &ParseError{Err: err}
	}

	return resolveIndirection(buf)
}

// resolveIndirection follows a single payload-path hop. The referenced file
// is assumed to be a full payload document; markers inside it are not
// resolved again.
func resolveIndirection(buf []byte) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(buf, &obj); err != nil {
		// Not an object (e.g. a bare array); no indirection possible.
		return buf, nil
	}

	marker, ok := obj[PayloadPathKey]
	if !ok {
		marker, ok = obj[PayloadPathKeyLegacy]
	}
	if !ok {
		return buf, nil
	}

	var path string
	if err := json.Unmarshal(marker, &path); err != nil || path == "" {
		return nil, &ParseError{Err: fmt.Errorf("invalid %s value", PayloadPathKey)}
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	if !json.Valid(contents) {
		var v any
		err := json.Unmarshal(contents, &v)
		return nil, &ParseError{Path: path, Err: err}
	}
	return contents, nil
}

func allWhitespace(buf []byte) bool {
	for _, b := range buf {
		if !unicode.IsSpace(rune(b)) {
			return false
		}
	}
	return true
}
