package route

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/favbox/windstream/common/config"
	errs "github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/internal/nocopy"
	"github.com/favbox/windstream/network"
	"github.com/favbox/windstream/protocol/consts"
	"github.com/favbox/windstream/protocol/http1"
)

const unknownTransporterName = "unknown"

const (
	_ uint32 = iota
	statusInitialized
	statusRunning
	statusShutdown
	statusClosed
)

var (
	errInitFailed       = errs.NewPrivate("路由引擎已经初始化")
	errAlreadyRunning   = errs.NewPrivate("路由引擎已在运行中")
	errStatusNotRunning = errs.NewPrivate("路由引擎未在运行中")

	default404Body = []byte("404 资源未找到")
	default405Body = []byte("405 方法不允许")
)

// CtxCallback 引擎关闭时，同时触发的钩子函数
type CtxCallback func(ctx context.Context)

// CtxErrCallback 引擎启动时，依次触发的钩子函数
type CtxErrCallback func(ctx context.Context) error

// NewEngine 创建给定选项的路由引擎。
func NewEngine(opts *config.Options) *Engine {
	engine := &Engine{
		options: opts,
		routes:  make(map[string]map[string]http1.Handler),
	}
	if opts.TransporterNewer != nil {
		engine.transport = opts.TransporterNewer(opts)
	} else {
		engine.transport = defaultTransporter(opts)
	}
	engine.server = http1.NewServer(engine.ServeConnection)
	engine.server.Option = newHttp1OptionFromEngine(engine)
	return engine
}

// Engine 路由引擎，按请求方法与路径将连接分派给处理器。
type Engine struct {
	noCopy nocopy.NoCopy //lint:ignore U1000 until noCopy is used

	// 路由器和服务器的选项
	options *config.Options

	// 路径 -> 方法 -> 处理器
	mu      sync.RWMutex
	routes  map[string]map[string]http1.Handler
	noRoute http1.Handler

	// 底层传输的网络库，现有 go net 和 netpoll 两个选择
	transport network.Transporter
	server    *http1.Server

	// 用于表示引擎状态（Init/Running/Shutdown/Closed）。
	status uint32

	// OnRun 是引擎启动时，依次触发的一组钩子函数。
	OnRun []CtxErrCallback

	// OnShutdown 是引擎关闭时，并行触发的一组钩子函数。
	OnShutdown []CtxCallback
}

// Handle 注册给定方法与路径的处理器，重复注册时覆盖。
func (engine *Engine) Handle(method, path string, handler http1.Handler) {
	if method == "" {
		panic("HTTP 方法不能为空")
	}
	if len(path) == 0 || path[0] != '/' {
		panic("路径必须以 '/' 开头")
	}
	if handler == nil {
		panic("处理器不能为空")
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	methods := engine.routes[path]
	if methods == nil {
		methods = make(map[string]http1.Handler)
		engine.routes[path] = methods
	}
	methods[method] = handler
	hlog.SystemLogger().Debugf("方法=%-6s 路径=%s", method, path)
}

// GET 是 Handle("GET", path, handler) 的快捷方式。
func (engine *Engine) GET(path string, handler http1.Handler) {
	engine.Handle(consts.MethodGet, path, handler)
}

// POST 是 Handle("POST", path, handler) 的快捷方式。
func (engine *Engine) POST(path string, handler http1.Handler) {
	engine.Handle(consts.MethodPost, path, handler)
}

// NoRoute 设置路由找不到时的处理器，默认响应 404。
func (engine *Engine) NoRoute(handler http1.Handler) {
	engine.mu.Lock()
	engine.noRoute = handler
	engine.mu.Unlock()
}

// ServeConnection 将连接分派给匹配的处理器。
func (engine *Engine) ServeConnection(c *http1.Connection) {
	path := string(c.Head().RequestURI())
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	method := string(c.Head().Method())

	engine.mu.RLock()
	methods := engine.routes[path]
	handler := methods[method]
	noRoute := engine.noRoute
	engine.mu.RUnlock()

	switch {
	case handler != nil:
		handler(c)
	case len(methods) > 0:
		allow := make([]string, 0, len(methods))
		for m := range methods {
			allow = append(allow, m)
		}
		sort.Strings(allow)
		r := c.Response()
		_ = r.WriteStatusCode(consts.StatusMethodNotAllowed)
		_ = r.WriteHeader(consts.HeaderAllow, strings.Join(allow, ", "))
		_ = r.End(default405Body)
	case noRoute != nil:
		noRoute(c)
	default:
		r := c.Response()
		_ = r.WriteStatusCode(consts.StatusNotFound)
		_ = r.End(default404Body)
	}
}

// Run 初始化并由传输器监听连接并提供 Serve 服务。
func (engine *Engine) Run() (err error) {
	if err = engine.Init(); err != nil {
		return err
	}

	// 切换引擎状态为运行中
	if err = engine.MarkAsRunning(); err != nil {
		return err
	}

	// 返回监听服务出错后，切换引擎状态至已关闭
	defer atomic.SwapUint32(&engine.status, statusClosed)

	// 依次触发可能存在的启动钩子
	ctx := context.Background()
	for i := range engine.OnRun {
		if err = engine.OnRun[i](ctx); err != nil {
			return err
		}
	}

	return engine.listenAndServe()
}

func (engine *Engine) listenAndServe() error {
	hlog.SystemLogger().Infof("使用网络库=%s", engine.GetTransporterName())
	return engine.transport.ListenAndServe(engine.onData)
}

func (engine *Engine) onData(ctx context.Context, conn any) (err error) {
	if c, ok := conn.(network.Conn); ok {
		err = engine.Serve(ctx, c)
	}
	return
}

// Init 将引擎状态切至已初始化。
func (engine *Engine) Init() error {
	if !atomic.CompareAndSwapUint32(&engine.status, 0, statusInitialized) {
		return errInitFailed
	}
	return nil
}

// MarkAsRunning 将引擎状态设为“运行中”。
// 警告：除非你知道自己在做什么，否则勿用此法。
func (engine *Engine) MarkAsRunning() error {
	if !atomic.CompareAndSwapUint32(&engine.status, statusInitialized, statusRunning) {
		return errAlreadyRunning
	}
	return nil
}

// IsRunning 报告引擎是否在运行中。
func (engine *Engine) IsRunning() bool {
	return atomic.LoadUint32(&engine.status) == statusRunning
}

// Shutdown 优雅关闭引擎：并行触发关闭钩子，再关闭传输器并等待连接处理结束。
func (engine *Engine) Shutdown(ctx context.Context) (err error) {
	if atomic.LoadUint32(&engine.status) != statusRunning {
		return errStatusNotRunning
	}
	if !atomic.CompareAndSwapUint32(&engine.status, statusRunning, statusShutdown) {
		return
	}

	ch := make(chan struct{})
	// 触发可能的钩子
	go engine.executeOnShutdownHooks(ctx, ch)
	defer func() {
		// 确保钩子执行完成或超时
		select {
		case <-ctx.Done():
			hlog.SystemLogger().Infof("执行 OnShutdownHooks 超时：错误=%v", ctx.Err())
		case <-ch:
			hlog.SystemLogger().Info("执行 OnShutdownHooks 完成")
		}
	}()

	// 关闭传输器
	if err = engine.transport.Shutdown(ctx); err != ctx.Err() {
		return err
	}
	return nil
}

// Close 立即关闭传输器。
func (engine *Engine) Close() error {
	return engine.transport.Close()
}

// Serve 为连接提供 HTTP/1.1 服务，返回时连接已关闭。
func (engine *Engine) Serve(ctx context.Context, conn network.Conn) (err error) {
	defer func() {
		errProcess(conn, err)
	}()
	return engine.server.Serve(ctx, conn)
}

// GetOptions 返回引擎选项。
func (engine *Engine) GetOptions() *config.Options {
	return engine.options
}

// GetServerName 返回 Server 标头的值，禁用时为空。
func (engine *Engine) GetServerName() []byte {
	if engine.options.NoDefaultServerHeader {
		return nil
	}
	return []byte(engine.options.ServerName)
}

// GetTransporterName 获取引擎实际使用的传输器名称。
func (engine *Engine) GetTransporterName() string {
	return getTransporterName(engine.transport)
}

func (engine *Engine) executeOnShutdownHooks(ctx context.Context, ch chan struct{}) {
	wg := sync.WaitGroup{}
	for i := range engine.OnShutdown {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			engine.OnShutdown[index](ctx)
		}(i)
	}
	wg.Wait()
	ch <- struct{}{}
}

func newHttp1OptionFromEngine(engine *Engine) http1.Option {
	return http1.Option{
		DisableKeepalive:   engine.options.DisableKeepalive,
		NoDefaultDate:      engine.options.NoDefaultDate,
		MaxRequestBodySize: engine.options.MaxRequestBodySize,
		MaxHeaderSize:      engine.options.ReadBufferSize,
		MaxWritableSpins:   engine.options.MaxWritableSpins,
		IdleTimeout:        engine.options.KeepAliveTimeout,
		ReadTimeout:        engine.options.ReadTimeout,
		ServerName:         engine.GetServerName(),
	}
}

func getTransporterName(transporter network.Transporter) (tName string) {
	defer func() {
		err := recover()
		if err != nil || tName == "" {
			tName = unknownTransporterName
		}
	}()
	t := reflect.ValueOf(transporter).Type().String()
	tName = strings.Split(strings.TrimPrefix(t, "*"), ".")[0]
	return tName
}

func errProcess(conn io.Closer, err error) {
	defer conn.Close()
	if err == nil {
		return
	}

	// 静默关闭连接
	if errors.Is(err, errs.ErrTimeout) || errors.Is(err, io.EOF) {
		return
	}

	// 获取供外部使用的远程地址
	rip := getRemoteAddrFromCloser(conn)

	// 处理特定错误
	if hse, ok := conn.(network.SpecificErrorHandler); ok {
		if hse.HandleSpecificError(err, rip) {
			return
		}
	}

	// 处理其他错误
	hlog.SystemLogger().Errorf("连接服务出错：错误=%s, 远程地址=%s", err.Error(), rip)
}

func getRemoteAddrFromCloser(conn io.Closer) string {
	if c, ok := conn.(network.Conn); ok {
		if addr := c.RemoteAddr(); addr != nil {
			return addr.String()
		}
	}
	return ""
}
