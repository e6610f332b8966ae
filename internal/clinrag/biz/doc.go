// Package biz 提供临床问答服务的业务逻辑层。
//
// 该包采用分层架构，将业务逻辑拆分为以下组件：
//   - Indexer: 负责文档索引（分块、嵌入、写入向量索引）
//   - Retriever: 负责文档块检索与上下文融合
//   - Generator: 负责提示词构建与答案生成
//   - AnswerCache: 基于 Redis 的答案缓存
//   - Session: 聊天记录与每轮指标
//   - Service: 组合以上组件，提供统一的服务接口
package biz
