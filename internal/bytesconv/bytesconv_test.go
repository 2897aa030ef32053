package bytesconv

import (
	"fmt"
	"testing"
	"time"

	"github.com/favbox/windstream/common/mock"
	"github.com/stretchr/testify/assert"
)

func TestB2s(t *testing.T) {
	t.Parallel()

	for _, v := range []struct {
		s string
		b []byte
	}{
		{"wind-http", []byte("wind-http")},
		{"wind", []byte("wind")},
		{"", []byte{}},
	} {
		assert.Equal(t, v.s, B2s(v.b))
		assert.Equal(t, v.s, string(S2b(v.s)))
	}
}

func TestAppendUint(t *testing.T) {
	t.Parallel()

	for _, n := range []uint64{0, 9, 10, 123, 0x7fffffff, 1<<64 - 1} {
		assert.Equal(t, fmt.Sprintf("%d", n), string(AppendUint(nil, n)))
	}
	assert.Equal(t, "len=42", string(AppendUint([]byte("len="), 42)))
}

func TestAppendHexUint(t *testing.T) {
	t.Parallel()

	for _, n := range []uint64{0, 1, 0xf, 0x10, 0x123, 0x7fffffffffffffff} {
		assert.Equal(t, fmt.Sprintf("%x", n), string(AppendHexUint(nil, n)))
	}
}

func TestAppendHTTPDate(t *testing.T) {
	t.Parallel()

	d := time.Date(2023, 5, 1, 8, 30, 0, 0, time.FixedZone("CST", 8*3600))
	assert.Equal(t, "Mon, 01 May 2023 00:30:00 GMT", string(AppendHTTPDate(nil, d)))
}

func TestParseUint(t *testing.T) {
	t.Parallel()

	v, err := ParseUint([]byte("1024"))
	assert.Nil(t, err)
	assert.Equal(t, 1024, v)

	for _, s := range []string{"", "a12", "12a", "99999999999999999999999"} {
		_, err = ParseUint([]byte(s))
		assert.NotNil(t, err, s)
	}
}

func TestReadHexInt(t *testing.T) {
	t.Parallel()

	for _, v := range []struct {
		s string
		n int
	}{
		{"0\r\n", 0},
		{"1\r\n", 1},
		{"123\r\n", 0x123},
		{"fF\r\n", 0xff},
		{"7fffffffffffff\r\n", 0x7fffffffffffff},
	} {
		n, err := ReadHexInt(mock.NewZeroCopyReader(v.s))
		assert.Nil(t, err)
		assert.Equal(t, v.n, n)
	}

	_, err := ReadHexInt(mock.NewZeroCopyReader("\r\n"))
	assert.Equal(t, errEmptyHexNum, err)

	_, err = ReadHexInt(mock.NewZeroCopyReader("0123456789abcdef\r\n"))
	assert.Equal(t, errTooLargeHexNum, err)
}
