package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
)

// 打分器的扩展节点（额外过滤、重排）按类型名登记在这里，pipeline 配置文件里的
// type 字段据此查找构建函数。内置类型由 config/builders 包的 init 登记，
// 入口需要 import _ "github.com/rushteam/prodrec/config/builders"。

// NodeBuilder 把一段节点配置构建成 pipeline.Node。
type NodeBuilder = pipeline.NodeBuilder

type nodeRegistry struct {
	mu       sync.RWMutex
	builders map[string]NodeBuilder
}

var extensions = &nodeRegistry{builders: make(map[string]NodeBuilder)}

func (r *nodeRegistry) put(typeName string, b NodeBuilder) {
	r.mu.Lock()
	r.builders[typeName] = b
	r.mu.Unlock()
}

func (r *nodeRegistry) has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[typeName]
	return ok
}

func (r *nodeRegistry) names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.builders))
	for name := range r.builders {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Register 登记一个扩展节点类型。同名再次登记时覆盖旧的构建函数；空名或空函数被忽略。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	extensions.put(typeName, builder)
}

// SupportedTypes 按字母序列出已登记的节点类型。
func SupportedTypes() []string {
	return extensions.names()
}

// DefaultFactory 用当前登记的全部类型生成一个 NodeFactory 快照，之后的登记不影响它。
func DefaultFactory() *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()
	extensions.mu.RLock()
	defer extensions.mu.RUnlock()
	for name, b := range extensions.builders {
		f.Register(name, b)
	}
	return f
}

// ValidatePipelineConfig 在构建前检查配置里出现的节点类型，所有未登记的类型会一起报出。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	var unknown []string
	for _, nc := range cfg.Pipeline.Nodes {
		if nc.Type != "" && !extensions.has(nc.Type) {
			unknown = append(unknown, nc.Type)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return core.ErrInvalidInput(core.ModuleConfig, fmt.Sprintf(
		"config: unknown scorer node type(s) %s, registered: %s",
		strings.Join(unknown, ", "), strings.Join(SupportedTypes(), ", ")))
}
