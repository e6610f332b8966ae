// Package store 提供文档块向量索引。
//
// 该包定义了向量存储的接口抽象，提供进程内精确 L2 暴力检索实现
// （FlatIndex）以及基于 Milvus FLAT 索引的实现。
package store
