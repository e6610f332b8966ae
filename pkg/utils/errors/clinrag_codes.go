package errors

// 临床 RAG 服务错误码: 21 (业务服务范围 20-79)。
func init() {
	RegisterService(ServiceClinRAG, "clinrag")
}

var (
	// 请求参数错误 (类别 01)
	ErrEmptyQuestion     = NewRequestErr(ServiceClinRAG, 1, "Question must not be empty", "问题不能为空")
	ErrUnsupportedFile   = NewRequestErr(ServiceClinRAG, 2, "Unsupported document type", "不支持的文档类型")
	ErrEmptyDocument     = NewRequestErr(ServiceClinRAG, 3, "Document contains no extractable text", "文档中没有可提取的文本")
	ErrDimensionMismatch = NewRequestErr(ServiceClinRAG, 4, "Embedding dimension mismatch", "向量维度不匹配")

	// 资源错误 (类别 04)
	ErrCodeNotFound       = NewNotFoundErr(ServiceClinRAG, 1, "Clinical code not found", "未找到临床编码")
	ErrCollectionNotFound = NewNotFoundErr(ServiceClinRAG, 2, "Collection not found", "集合不存在")

	// 状态错误 (类别 05)
	ErrNoDocument      = NewConflictErr(ServiceClinRAG, 1, "No document has been indexed yet", "尚未索引任何文档")
	ErrClinVecNotReady = NewConflictErr(ServiceClinRAG, 2, "Clinical code index is not loaded", "临床编码索引未加载")

	// 内部错误 (类别 07)
	ErrIndexFailed      = NewInternalErr(ServiceClinRAG, 1, "Document indexing failed", "文档索引失败")
	ErrRetrievalFailed  = NewInternalErr(ServiceClinRAG, 2, "Retrieval failed", "检索失败")
	ErrGenerationFailed = NewInternalErr(ServiceClinRAG, 3, "Answer generation failed", "答案生成失败")
	ErrEvaluationFailed = NewInternalErr(ServiceClinRAG, 4, "Answer evaluation failed", "答案评估失败")
	ErrExportFailed     = NewInternalErr(ServiceClinRAG, 5, "Metrics export failed", "指标导出失败")
	ErrClinVecLoad      = NewInternalErr(ServiceClinRAG, 6, "Failed to load clinical code embeddings", "加载临床编码向量失败")

	// 缓存错误 (类别 09)
	ErrCacheUnavailable = NewCacheErr(ServiceClinRAG, 1, "Answer cache unavailable", "答案缓存不可用")

	// 上游错误 (类别 10)
	ErrEmbeddingFailed = NewNetworkErr(ServiceClinRAG, 1, "Embedding provider request failed", "向量服务请求失败")
	ErrVectorStore     = NewNetworkErr(ServiceClinRAG, 2, "Vector store unavailable", "向量存储不可用")

	// 超时错误 (类别 11)
	ErrAskTimeout = NewTimeoutErr(ServiceClinRAG, 1, "Question answering timed out", "问答超时")
)
