// Package codec converts text to and from the digit-only form that can be
// stored in a cloud variable.
//
// Each character is written as its two-digit, 1-based position in
// [Alphabet] and an encoded string ends with the "00" terminator:
//
//	Encode("hi") == "181900"
//
// Several encoded strings may be packed into one variable and read back
// in order with [DecodeNext].
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet lists the encodable characters in code order.  Code 1 is '0'.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ!#$%()*+,-./\\:;=?@[]^_`{|}~\"'&<> "

// Terminator ends every encoded string.
const Terminator = "00"

var (
	ErrUnsupportedChar = errors.New("character not in codec alphabet")
	ErrInvalidCode     = errors.New("invalid code")
)

// CodecError describes where encoding or decoding failed.
type CodecError struct {
	Op   string // "encode" or "decode"
	Pos  int    // rune index (encode) or byte offset (decode)
	Rune rune   // offending character when Op is "encode"
	Code string // offending digit pair when Op is "decode"
	Err  error
}

func (e *CodecError) Error() string {
	if e.Op == "encode" {
		return fmt.Sprintf("codec encode: %q at %d: %v", e.Rune, e.Pos, e.Err)
	}
	return fmt.Sprintf("codec decode: %q at %d: %v", e.Code, e.Pos, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

var codes = func() map[rune]int {
	m := make(map[rune]int, len(Alphabet))
	for i, r := range Alphabet {
		m[r] = i + 1
	}
	return m
}()

// Encode returns the digit form of text followed by [Terminator].  It
// fails without partial output on the first character outside
// [Alphabet].
func Encode(text string) (string, error) {
	var b strings.Builder
	b.Grow(2*len(text) + len(Terminator))
	pos := 0
	for _, r := range text {
		code, ok := codes[r]
		if !ok {
			return "", &CodecError{Op: "encode", Pos: pos, Rune: r, Err: ErrUnsupportedChar}
		}
		fmt.Fprintf(&b, "%02d", code)
		pos++
	}
	b.WriteString(Terminator)
	return b.String(), nil
}

// MustEncode is like Encode but panics on error.  Use it for constant
// inputs only.
func MustEncode(text string) string {
	s, err := Encode(text)
	if err != nil {
		panic(err)
	}
	return s
}

// EncodeAll concatenates the encodings of texts, one terminator each.
func EncodeAll(texts ...string) (string, error) {
	var b strings.Builder
	for _, t := range texts {
		s, err := Encode(t)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Decode reads digit pairs from digits starting at offset and returns
// the text up to the first terminator.  Running out of input before a
// terminator returns what was decoded so far.
func Decode(digits string, offset int) (string, error) {
	text, _, err := DecodeNext(digits, offset)
	return text, err
}

// DecodeNext is like Decode and also returns the offset just past the
// terminator (or len(digits) when the input ran out), which is where the
// next packed string starts.
func DecodeNext(digits string, offset int) (text string, next int, err error) {
	if offset < 0 || offset > len(digits) {
		return "", offset, &CodecError{
			Op: "decode", Pos: offset, Err: fmt.Errorf("%w: offset out of range [0,%d]", ErrInvalidCode, len(digits)),
		}
	}

	var b strings.Builder
	i := offset
	for i < len(digits) {
		if i+1 >= len(digits) {
			return "", i, &CodecError{Op: "decode", Pos: i, Code: digits[i:], Err: fmt.Errorf("%w: dangling digit", ErrInvalidCode)}
		}
		pair := digits[i : i+2]
		hi, lo := pair[0], pair[1]
		if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
			return "", i, &CodecError{Op: "decode", Pos: i, Code: pair, Err: ErrInvalidCode}
		}
		i += 2
		code := int(hi-'0')*10 + int(lo-'0')
		if code == 0 {
			return b.String(), i, nil
		}
		if code > len(Alphabet) {
			return "", i - 2, &CodecError{Op: "decode", Pos: i - 2, Code: pair, Err: ErrInvalidCode}
		}
		b.WriteByte(Alphabet[code-1])
	}
	return b.String(), i, nil
}
