package bytesconv

import (
	"net/http"
	"time"
	"unsafe"

	"github.com/favbox/windstream/network"
)

const (
	lowerHex       = "0123456789abcdef" // 小写的十六进制字符
	maxHexIntChars = 15                 // 十六进制块大小的最大位数
)

// Hex2intTable 将字节映射为十六进制数值，非十六进制字符映射为 16。
var Hex2intTable = func() [256]byte {
	var b [256]byte
	for i := 0; i < 256; i++ {
		c := byte(16)
		switch {
		case i >= '0' && i <= '9':
			c = byte(i) - '0'
		case i >= 'a' && i <= 'f':
			c = byte(i) - 'a' + 10
		case i >= 'A' && i <= 'F':
			c = byte(i) - 'A' + 10
		}
		b[i] = c
	}
	return b
}()

// B2s 将字节切片转为字符串，且不分配内存。
//
// 注意：调用方必须保证 b 在字符串使用期间不被修改。
func B2s(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// S2b 将字符串转为字节切片，且不分配内存。返回的切片不可写。
func S2b(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// AppendUint 向 dst 追加十进制无符号整数 n 并返回。
func AppendUint(dst []byte, n uint64) []byte {
	var b [20]byte
	buf := b[:]
	i := len(buf)
	var q uint64
	for n >= 10 {
		i--
		q = n / 10
		buf[i] = '0' + byte(n-q*10)
		n = q
	}
	i--
	buf[i] = '0' + byte(n)

	return append(dst, buf[i:]...)
}

// AppendHexUint 向 dst 追加小写十六进制整数 n 并返回，用于分块长度行。
func AppendHexUint(dst []byte, n uint64) []byte {
	var b [16]byte
	i := len(b)
	for {
		i--
		b[i] = lowerHex[n&0xf]
		n >>= 4
		if n == 0 {
			break
		}
	}
	return append(dst, b[i:]...)
}

// AppendHTTPDate 向 dst 追加 HTTP 兼容时间并返回。
func AppendHTTPDate(dst []byte, date time.Time) []byte {
	return date.UTC().AppendFormat(dst, http.TimeFormat)
}

// ParseUintBuf 解析 b 开头的十进制整数，n 为已消费的字节数。
func ParseUintBuf(b []byte) (v, n int, err error) {
	n = len(b)
	if n == 0 {
		return -1, 0, errEmptyInt
	}
	for i := 0; i < n; i++ {
		c := b[i]
		k := c - '0'
		if k > 9 {
			if i == 0 {
				return -1, i, errUnexpectedFirstChar
			}
			return v, i, nil
		}
		vNew := 10*v + int(k)
		// 测试溢出
		if vNew < v {
			return -1, i, errTooLongInt
		}
		v = vNew
	}
	return
}

// ParseUint 解析 b 中的十进制整数，不允许尾随字符。
func ParseUint(b []byte) (int, error) {
	v, n, err := ParseUintBuf(b)
	if err != nil {
		return -1, err
	}
	if n != len(b) {
		return -1, errUnexpectedTrailingChar
	}
	return v, nil
}

// ReadHexInt 读取 r 中的十六进制整数值。
func ReadHexInt(r network.Reader) (int, error) {
	n := 0
	i := 0
	var k int
	for {
		buf, err := r.Peek(1)
		if err != nil {
			if i > 0 {
				return n, nil
			}
			return -1, err
		}

		c := buf[0]
		k = int(Hex2intTable[c])
		if k == 16 {
			if i == 0 {
				return -1, errEmptyHexNum
			}
			return n, nil
		}
		if i >= maxHexIntChars {
			return -1, errTooLargeHexNum
		}

		_ = r.Skip(1)
		n = (n << 4) | k
		i++
	}
}
