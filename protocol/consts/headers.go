package consts

// 引擎关心的标头名称。
const (
	HeaderContentLength    = "Content-Length"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderConnection       = "Connection"
	HeaderContentType      = "Content-Type"
	HeaderServer           = "Server"
	HeaderDate             = "Date"
	HeaderAllow            = "Allow"
)

// HTTP 请求方法。
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
)

// 协议版本。
const (
	HTTP11 = "HTTP/1.1"
	HTTP10 = "HTTP/1.0"
)

// DefaultServerName 是默认的 Server 标头值。
const DefaultServerName = "windstream"
