package config

import (
	"path/filepath"
	"strings"

	"github.com/rushteam/prodrec/pipeline"
)

// LoadPipeline 读取打分器的扩展节点配置（.json 按 JSON 解析，其余按 YAML），
// 校验类型均已注册后用 DefaultFactory 构建。path 为空时返回 nil。
func LoadPipeline(path string) ([]pipeline.Node, error) {
	if path == "" {
		return nil, nil
	}
	var (
		cfg *pipeline.Config
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		cfg, err = pipeline.LoadFromJSON(path)
	} else {
		cfg, err = pipeline.LoadFromYAML(path)
	}
	if err != nil {
		return nil, err
	}
	return BuildPipeline(cfg)
}

// BuildPipeline 校验并构建已解析的 pipeline 配置。
func BuildPipeline(cfg *pipeline.Config) ([]pipeline.Node, error) {
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildNodes(DefaultFactory())
}
