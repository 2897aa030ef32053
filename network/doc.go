// Package network 定义响应引擎与传输层之间的协作契约。
//
// 引擎只依赖 ByteSink 的非阻塞写入；阻塞等待（刷新、等待可写）由 Pump 在驱动协程中完成。
// 包括两种实现：
//  1. 高性能非阻塞库 netpoll 实现（基于写缓冲水位线判定饱和）。
//  2. 标准库 standard 实现（基于套接字的非阻塞写，EAGAIN 即饱和）。
package network
