package ledview

import (
	"bytes"
	"errors"
	"strconv"
)

const maxPacked = 0xFFFFFF

var (
	errEmptyToken    = errors.New("empty token")
	errOutOfRange    = errors.New("value is not a 24-bit color")
	errEmptyMessage  = errors.New("empty message")
	errPartialColors = errors.New("length is not a multiple of 3")
)

// DecodeText decodes a text feed message: comma-separated base-10 integers,
// each a packed 0xRRGGBB color. Any malformed token rejects the whole frame
// with a *DecodeError. The returned frame reuses dst if it has enough
// capacity.
func DecodeText(data []byte, dst Frame) (Frame, error) {
	dst = dst[:0]

	for i := 0; ; i++ {
		token, rest, more := bytes.Cut(data, []byte{','})
		data = rest

		token = bytes.TrimSpace(token)
		if len(token) == 0 {
			return nil, &DecodeError{Index: i, Err: errEmptyToken}
		}

		v, err := strconv.ParseUint(string(token), 10, 32)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) {
				err = numErr.Err
			}
			return nil, &DecodeError{Index: i, Token: string(token), Err: err}
		}
		if v > maxPacked {
			return nil, &DecodeError{Index: i, Token: string(token), Err: errOutOfRange}
		}

		dst = append(dst, ColorFromPacked(uint32(v)))

		if !more {
			return dst, nil
		}
	}
}

// DecodeBinary decodes a binary feed message: 3 bytes per LED in R, G, B
// order. The returned frame reuses dst if it has enough capacity.
func DecodeBinary(data []byte, dst Frame) (Frame, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Index: -1, Err: errEmptyMessage}
	}
	if len(data)%3 != 0 {
		return nil, &DecodeError{Index: -1, Err: errPartialColors}
	}

	dst = dst[:0]
	for i := 0; i < len(data); i += 3 {
		dst = append(dst, Color{R: data[i], G: data[i+1], B: data[i+2]})
	}
	return dst, nil
}

// EncodeText encodes the frame in the text feed format.
func EncodeText(frame Frame) []byte {
	b := make([]byte, 0, len(frame)*9)
	for i, c := range frame {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendUint(b, uint64(c.Packed()), 10)
	}
	return b
}

// EncodeBinary encodes the frame in the binary feed format.
func EncodeBinary(frame Frame) []byte {
	b := make([]byte, 0, len(frame)*3)
	for _, c := range frame {
		b = append(b, c.R, c.G, c.B)
	}
	return b
}
