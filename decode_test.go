package ledview

import (
	"errors"
	"strconv"
	"testing"

	"dev.acmcsuf.com/christmas/lib/xcolor"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestColorPacking(t *testing.T) {
	c := ColorFromPacked((10 << 16) | (20 << 8) | 30)
	assertEq(t, Color{R: 10, G: 20, B: 30}, c)
	assertEq(t, uint32(660510), c.Packed())

	assertEq(t, Color{R: 0xAB, G: 0xCD, B: 0xEF}, ColorFromPacked(0xFFABCDEF))

	r, g, b, a := Color{R: 0xFF}.RGBA()
	assertEq(t, [4]uint32{0xFFFF, 0, 0, 0xFFFF}, [4]uint32{r, g, b, a})
}

func TestColorXColor(t *testing.T) {
	for _, v := range []uint32{0, 0x010203, 0xABCDEF, 0xFFFFFF} {
		c := ColorFromPacked(v)
		assertEq(t, xcolor.RGBFromUint(v), c.RGB())
		assertEq(t, v, c.RGB().ToUint())
	}

	frame := Frame{{R: 1}, {G: 2}, {B: 3}}
	assertEq(t, []xcolor.RGB{
		xcolor.RGBFromUint(0x010000),
		xcolor.RGBFromUint(0x000200),
		xcolor.RGBFromUint(0x000003),
	}, frame.RGB())
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		expect Frame
		err    *DecodeError
	}{
		{
			name:   "zero",
			in:     "0",
			expect: Frame{{0, 0, 0}},
		},
		{
			name:   "packed",
			in:     "660510",
			expect: Frame{{10, 20, 30}},
		},
		{
			name:   "several",
			in:     "16711680,65280,255,16777215",
			expect: Frame{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {255, 255, 255}},
		},
		{
			name:   "whitespace",
			in:     " 1 ,\t2,3\n",
			expect: Frame{{0, 0, 1}, {0, 0, 2}, {0, 0, 3}},
		},
		{
			name: "empty message",
			in:   "",
			err:  &DecodeError{Index: 0, Err: errEmptyToken},
		},
		{
			name: "trailing comma",
			in:   "1,2,",
			err:  &DecodeError{Index: 2, Err: errEmptyToken},
		},
		{
			name: "not a number",
			in:   "1,NaN,3",
			err:  &DecodeError{Index: 1, Token: "NaN", Err: strconv.ErrSyntax},
		},
		{
			name: "negative",
			in:   "-1",
			err:  &DecodeError{Index: 0, Token: "-1", Err: strconv.ErrSyntax},
		},
		{
			name: "float",
			in:   "1.5",
			err:  &DecodeError{Index: 0, Token: "1.5", Err: strconv.ErrSyntax},
		},
		{
			name: "too large for 24 bits",
			in:   "0,16777216",
			err:  &DecodeError{Index: 1, Token: "16777216", Err: errOutOfRange},
		},
		{
			name: "too large for 32 bits",
			in:   "99999999999",
			err:  &DecodeError{Index: 0, Token: "99999999999", Err: strconv.ErrRange},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			frame, err := DecodeText([]byte(test.in), nil)
			if test.err != nil {
				assertDecodeError(t, *test.err, err)
				if frame != nil {
					t.Errorf("expected no frame, got %v", frame)
				}
				return
			}
			if err != nil {
				t.Fatal("unexpected error:", err)
			}
			assertEq(t, test.expect, frame)
		})
	}
}

func TestDecodeTextReusesBuffer(t *testing.T) {
	buf := make(Frame, 0, 8)

	frame, err := DecodeText([]byte("1,2,3"), buf)
	if err != nil {
		t.Fatal(err)
	}
	if &frame[0] != &buf[:1][0] {
		t.Error("frame does not reuse the buffer")
	}

	frame, err = DecodeText([]byte("4,5"), frame)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, Frame{{0, 0, 4}, {0, 0, 5}}, frame)
}

func TestDecodeBinary(t *testing.T) {
	frame, err := DecodeBinary([]byte{10, 20, 30, 255, 0, 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, Frame{{10, 20, 30}, {255, 0, 1}}, frame)

	_, err = DecodeBinary(nil, nil)
	assertDecodeError(t, DecodeError{Index: -1, Err: errEmptyMessage}, err)

	_, err = DecodeBinary([]byte{1, 2, 3, 4}, nil)
	assertDecodeError(t, DecodeError{Index: -1, Err: errPartialColors}, err)
}

func TestEncode(t *testing.T) {
	frame := Frame{{10, 20, 30}, {0, 0, 0}, {255, 255, 255}}

	assertEq(t, "660510,0,16777215", string(EncodeText(frame)))
	assertEq(t, []byte{10, 20, 30, 0, 0, 0, 255, 255, 255}, EncodeBinary(frame))

	decoded, err := DecodeText(EncodeText(frame), nil)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, frame, decoded)
}

func assertDecodeError(t *testing.T, expect DecodeError, err error) {
	t.Helper()

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected a *DecodeError, got %v", err)
	}
	assertEq(t, expect, *decodeErr, cmpopts.EquateErrors())
}

func assertEq[T any](t *testing.T, expected, actual T, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
}
