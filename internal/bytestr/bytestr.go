// Package bytestr 定义协议帧用到的字节串常量。
package bytestr

var (
	StrCRLF        = []byte("\r\n")
	StrCRLFCRLF    = []byte("\r\n\r\n")
	StrColonSpace  = []byte(": ")
	StrHTTP11      = []byte("HTTP/1.1")
	StrHTTP10      = []byte("HTTP/1.0")
	StrLastChunk   = []byte("0\r\n\r\n")
	StrChunked     = []byte("chunked")
	StrClose       = []byte("close")
	StrKeepAlive   = []byte("keep-alive")
	StrIdentity    = []byte("identity")
	StrDefaultStat = []byte("200 OK")

	StrContentLength    = []byte("Content-Length")
	StrTransferEncoding = []byte("Transfer-Encoding")
	StrConnection       = []byte("Connection")
	StrServer           = []byte("Server")
	StrDate             = []byte("Date")
)
