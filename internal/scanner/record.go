package scanner

import (
	"encoding/json"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/secretlens/secretlens/internal/common"
)

// rawRecord is the wire shape of one scanner output line. Diagnostic
// lines carry a lowercase "level" key; findings use the capitalized
// field names below. Raw stays a json.RawMessage so the secret never
// passes through an immutable Go string during decoding.
type rawRecord struct {
	Level          json.RawMessage   `json:"level"`
	DetectorName   string            `json:"DetectorName"`
	DecoderName    string            `json:"DecoderName"`
	Verified       *bool             `json:"Verified"`
	Raw            json.RawMessage   `json:"Raw"`
	SourceMetadata *sourceMetadata   `json:"SourceMetadata"`
	ExtraData      map[string]string `json:"ExtraData"`
}

type sourceMetadata struct {
	Data *sourceData `json:"Data"`
}

type sourceData struct {
	Filesystem *filesystemMetadata `json:"Filesystem"`
}

type filesystemMetadata struct {
	File string `json:"file"`
	Line int64  `json:"line"`
}

// location flattens the nested filesystem metadata. Records scanned
// from non-file sources have none; those findings carry an empty path
// and line zero.
func (r *rawRecord) location() (string, int64) {
	if r.SourceMetadata == nil || r.SourceMetadata.Data == nil || r.SourceMetadata.Data.Filesystem == nil {
		return "", 0
	}
	fs := r.SourceMetadata.Data.Filesystem
	line := fs.Line
	if line < 0 {
		line = 0
	}
	return fs.File, line
}

// unquoteJSONString decodes a JSON string token into a fresh byte
// slice. strconv.Unquote and json.Unmarshal both materialize a Go
// string, which cannot be zeroed afterwards; secrets have to land in
// wipeable memory, so the decoding is done by hand here.
func unquoteJSONString(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return nil, common.NewError("not a JSON string token")
	}

	end := len(data) - 1
	out := make([]byte, 0, end-1)
	var scratch [utf8.UTFMax]byte

	for i := 1; i < end; i++ {
		c := data[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}

		i++
		if i >= end {
			return nil, common.NewError("truncated escape sequence")
		}
		switch data[i] {
		case '"':
			out = append(out, '"')
		case '\\':
			out = append(out, '\\')
		case '/':
			out = append(out, '/')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			r1 := decodeHexRune(data, i+1, end)
			if r1 < 0 {
				return nil, common.NewError("invalid \\u escape")
			}
			i += 4
			r := r1
			if utf16.IsSurrogate(r1) {
				r = utf8.RuneError
				if i+2 < end && data[i+1] == '\\' && data[i+2] == 'u' {
					if r2 := decodeHexRune(data, i+3, end); r2 >= 0 {
						if combined := utf16.DecodeRune(r1, r2); combined != utf8.RuneError {
							r = combined
							i += 6
						}
					}
				}
			}
			n := utf8.EncodeRune(scratch[:], r)
			out = append(out, scratch[:n]...)
		default:
			return nil, common.NewError("invalid escape character %q", data[i])
		}
	}

	return out, nil
}

// decodeHexRune reads four hex digits starting at index start, staying
// below limit. Returns -1 when the digits are missing or malformed.
func decodeHexRune(data []byte, start, limit int) rune {
	if start+4 > limit {
		return -1
	}
	var r rune
	for _, c := range data[start : start+4] {
		switch {
		case c >= '0' && c <= '9':
			c -= '0'
		case c >= 'a' && c <= 'f':
			c = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			c = c - 'A' + 10
		default:
			return -1
		}
		r = r*16 + rune(c)
	}
	return r
}
