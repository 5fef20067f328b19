// Package encoding converts the EUC-KR names stored in RSM models.
package encoding

import (
	"path"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to a UTF-8 string.
// Returns the input unchanged if it does not decode.
func EUCKRToUTF8(data []byte) string {
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// EUCKRStringToUTF8 converts an EUC-KR encoded string to UTF-8.
func EUCKRStringToUTF8(s string) string {
	return EUCKRToUTF8([]byte(s))
}

// UTF8ToEUCKR converts a UTF-8 string to EUC-KR bytes.
// Returns the input bytes if a rune has no EUC-KR form.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// TextureName returns the base name of a backslash separated texture path,
// decoded to UTF-8 and without its extension.
func TextureName(raw string) string {
	p := strings.ReplaceAll(EUCKRStringToUTF8(raw), "\\", "/")
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
