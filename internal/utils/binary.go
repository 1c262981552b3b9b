package utils

import (
	"errors"
	"unicode/utf8"
)

// ErrNotText reports content that is not decodable as UTF-8 text.
var ErrNotText = errors.New("content is not valid UTF-8 text")

// IsBinary reports whether the provided byte slice appears to contain binary data.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if !utf8.Valid(data) {
		return true
	}
	for _, byteValue := range data {
		if byteValue == 0 {
			return true
		}
	}
	return false
}

// DecodeText converts data into a string, rejecting anything IsBinary flags.
func DecodeText(data []byte) (string, error) {
	if IsBinary(data) {
		return "", ErrNotText
	}
	return string(data), nil
}
