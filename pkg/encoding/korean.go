// Package encoding decodes the EUC-KR strings embedded in Ragnarok Online
// model files and archive tables.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// convert runs data through t, returning data itself on failure so a
// malformed name still yields something printable.
func convert(t transform.Transformer, data []byte) []byte {
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return data
	}
	return out
}

// EUCKRToUTF8 decodes EUC-KR bytes. ASCII input is returned unchanged.
func EUCKRToUTF8(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	return string(convert(korean.EUCKR.NewDecoder(), data))
}

// UTF8ToEUCKR encodes s as EUC-KR. Invalid UTF-8 is passed through.
func UTF8ToEUCKR(s string) []byte {
	if !utf8.ValidString(s) || isASCII([]byte(s)) {
		return []byte(s)
	}
	return convert(korean.EUCKR.NewEncoder(), []byte(s))
}

// FixedStringToUTF8 decodes a NUL-terminated EUC-KR field.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return EUCKRToUTF8(data)
}

// UTF8ToFixedString encodes s into a NUL-padded EUC-KR field of size bytes,
// truncating when it does not fit.
func UTF8ToFixedString(s string, size int) []byte {
	field := make([]byte, size)
	copy(field, UTF8ToEUCKR(s))
	return field
}

// NormalizeGRFPath folds an archive path to forward slashes and lower case,
// the form entries are looked up by.
func NormalizeGRFPath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
