package llm

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrUnknownProvider 请求的供应商未注册。
var ErrUnknownProvider = errors.New("unknown provider")

// Factory 根据配置创建供应商实例。
type Factory[T any] func(config map[string]any) (T, error)

// ProviderFactory 完整供应商工厂。
type ProviderFactory = Factory[Provider]

// EmbeddingProviderFactory Embedding 供应商工厂。
type EmbeddingProviderFactory = Factory[EmbeddingProvider]

// ChatProviderFactory Chat 供应商工厂。
type ChatProviderFactory = Factory[ChatProvider]

// ClassifierProviderFactory 分类供应商工厂。
type ClassifierProviderFactory = Factory[ClassifierProvider]

// factories 按角色分组的工厂表。
type factories[T any] struct {
	mu sync.RWMutex
	m  map[string]Factory[T]
}

func (f *factories[T]) register(name string, factory Factory[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.m == nil {
		f.m = make(map[string]Factory[T])
	}
	f.m[name] = factory
}

func (f *factories[T]) lookup(name string) (Factory[T], bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	factory, ok := f.m[name]
	return factory, ok
}

func (f *factories[T]) names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Collect(maps.Keys(f.m))
}

var (
	fullProviders      factories[Provider]
	embeddingProviders factories[EmbeddingProvider]
	chatProviders      factories[ChatProvider]
	classifiers        factories[ClassifierProvider]
)

// RegisterProvider 注册完整供应商，它同时可作为 Embedding 与 Chat 供应商。
func RegisterProvider(name string, factory ProviderFactory) {
	fullProviders.register(name, factory)
}

// RegisterEmbeddingProvider 注册 Embedding 供应商。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	embeddingProviders.register(name, factory)
}

// RegisterChatProvider 注册 Chat 供应商。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	chatProviders.register(name, factory)
}

// RegisterClassifierProvider 注册分类供应商。
func RegisterClassifierProvider(name string, factory ClassifierProviderFactory) {
	classifiers.register(name, factory)
}

// NewProvider 创建完整供应商。
func NewProvider(name string, config map[string]any) (Provider, error) {
	factory, ok := fullProviders.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return factory(config)
}

// NewEmbeddingProvider 创建 Embedding 供应商，专用工厂优先于完整供应商。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	if factory, ok := embeddingProviders.lookup(name); ok {
		return factory(config)
	}
	if factory, ok := fullProviders.lookup(name); ok {
		return factory(config)
	}
	return nil, fmt.Errorf("%w: embedding %s", ErrUnknownProvider, name)
}

// NewChatProvider 创建 Chat 供应商，专用工厂优先于完整供应商。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	if factory, ok := chatProviders.lookup(name); ok {
		return factory(config)
	}
	if factory, ok := fullProviders.lookup(name); ok {
		return factory(config)
	}
	return nil, fmt.Errorf("%w: chat %s", ErrUnknownProvider, name)
}

// NewClassifierProvider 创建分类供应商。分类器只来自专用工厂。
func NewClassifierProvider(name string, config map[string]any) (ClassifierProvider, error) {
	factory, ok := classifiers.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: classifier %s", ErrUnknownProvider, name)
	}
	return factory(config)
}

// ListProviders 返回所有已注册的供应商名称，去重并排序。
func ListProviders() []string {
	var names []string
	names = append(names, fullProviders.names()...)
	names = append(names, embeddingProviders.names()...)
	names = append(names, chatProviders.names()...)
	names = append(names, classifiers.names()...)
	slices.Sort(names)
	return slices.Compact(names)
}
