package req

import (
	"io"
	"testing"

	"github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/common/mock"
	"github.com/stretchr/testify/assert"
)

func decodeAll(t *testing.T, d *BodyDecoder, source string) (string, int, error) {
	t.Helper()
	r := mock.NewZeroCopyReader(source)
	var body []byte
	var lasts int
	for i := 0; i < 1000; i++ {
		chunk, last, err := d.Next(r)
		if err != nil {
			return string(body), lasts, err
		}
		body = append(body, chunk...)
		if last {
			lasts++
			return string(body), lasts, nil
		}
	}
	t.Fatal("decoder did not finish")
	return "", 0, nil
}

func TestBodyDecoderFixed(t *testing.T) {
	body := mock.CreateFixedBody(100)
	d := NewBodyDecoder(len(body), 0)

	got, lasts, err := decodeAll(t, d, string(body)+"GET / HTTP/1.1\r\n\r\n")
	assert.Nil(t, err)
	assert.Equal(t, string(body), got)
	assert.Equal(t, 1, lasts)
	assert.True(t, d.Done())

	chunk, last, err := d.Next(mock.NewZeroCopyReader(""))
	assert.Nil(t, err)
	assert.True(t, last)
	assert.Nil(t, chunk)
}

func TestBodyDecoderEmpty(t *testing.T) {
	d := NewBodyDecoder(0, 0)
	chunk, last, err := d.Next(&mock.EOFReader{})
	assert.Nil(t, err)
	assert.True(t, last)
	assert.Empty(t, chunk)
}

func TestBodyDecoderChunked(t *testing.T) {
	body := mock.CreateFixedBody(30)
	source := mock.CreateChunkedBody(body, map[string]string{"Foo": "bar"}, true)
	d := NewBodyDecoder(-1, 0)

	got, lasts, err := decodeAll(t, d, string(source))
	assert.Nil(t, err)
	assert.Equal(t, string(body), got)
	assert.Equal(t, 1, lasts)
}

func TestBodyDecoderChunkedBroken(t *testing.T) {
	d := NewBodyDecoder(-1, 0)
	_, _, err := decodeAll(t, d, "3\r\nabcXX2\r\nde\r\n0\r\n\r\n")
	assert.ErrorIs(t, err, errors.ErrBrokenChunk)
}

func TestBodyDecoderTruncated(t *testing.T) {
	d := NewBodyDecoder(10, 0)
	got, _, err := decodeAll(t, d, "abc")
	assert.Equal(t, "abc", got)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestBodyDecoderTooLarge(t *testing.T) {
	d := NewBodyDecoder(10, 5)
	_, _, err := decodeAll(t, d, "0123456789")
	assert.ErrorIs(t, err, errors.ErrBodyTooLarge)

	body := mock.CreateFixedBody(20)
	d = NewBodyDecoder(-1, 5)
	_, _, err = decodeAll(t, d, string(mock.CreateChunkedBody(body, nil, true)))
	assert.ErrorIs(t, err, errors.ErrBodyTooLarge)
}
