package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/embedding"
	"github.com/rushteam/prodrec/logging"
	"github.com/rushteam/prodrec/store"
)

// EnvPrefix 是环境变量前缀，嵌套层级用双下划线分隔：
// PRODREC_SCORING__TOP_N=5 对应 scoring.top_n。
const EnvPrefix = "PRODREC_"

// 事件日志后端
const (
	EventBackendKV     = "kv"
	EventBackendSQLite = "sqlite"
)

// Settings 是应用级配置。
type Settings struct {
	Store     store.Options    `koanf:"store"`
	Keys      dataset.Keys     `koanf:"keys"`
	Events    EventSettings    `koanf:"events"`
	Embedding embedding.Config `koanf:"embedding"`
	Scoring   ScoringSettings  `koanf:"scoring"`
	Logging   logging.Config   `koanf:"logging"`
	Metrics   MetricsSettings  `koanf:"metrics"`
}

// EventSettings 选择行为日志的存储方式。
type EventSettings struct {
	// Backend 为 kv 时日志存放在 Store 的 keys.events 下
	Backend string `koanf:"backend" validate:"oneof=kv sqlite"`
	// DSN 是 sqlite 数据库文件
	DSN string `koanf:"dsn" validate:"required_if=Backend sqlite"`
}

// ScoringSettings 是打分、画像与批量运行参数。
type ScoringSettings struct {
	RelevanceThreshold float64 `koanf:"relevance_threshold" validate:"gte=-1,lte=1"`
	TopN               int     `koanf:"top_n" validate:"gt=0"`
	BatchTopN          int     `koanf:"batch_top_n" validate:"gt=0"`
	CategoryBoost      float64 `koanf:"category_boost" validate:"gte=0"`
	BlendWeight        float64 `koanf:"blend_weight" validate:"gt=0,lt=1"`
	Workers            int     `koanf:"workers" validate:"gte=1"`
	// Pipeline 是扩展节点配置文件（YAML/JSON），为空时不扩展
	Pipeline string `koanf:"pipeline"`
	// EvalK 是离线评估的 K
	EvalK int `koanf:"eval_k" validate:"gt=0"`
}

// MetricsSettings 控制运行指标导出。
type MetricsSettings struct {
	// File 非空时，每条命令结束后以 Prometheus 文本格式写入该文件
	File string `koanf:"file"`
}

// DefaultSettings 返回全部默认值；配置文件与环境变量在此基础上覆盖。
func DefaultSettings() Settings {
	return Settings{
		Store: store.Options{
			Backend: store.BackendFile,
			Dir:     "data",
		},
		Keys: dataset.DefaultKeys(),
		Events: EventSettings{
			Backend: EventBackendKV,
		},
		Embedding: embedding.DefaultConfig(),
		Scoring: ScoringSettings{
			RelevanceThreshold: core.DefaultRelevanceThreshold,
			TopN:               core.DefaultTopN,
			BatchTopN:          core.DefaultBatchTopN,
			CategoryBoost:      core.DefaultCategoryBoost,
			BlendWeight:        core.DefaultBlendWeight,
			Workers:            1,
			EvalK:              10,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load 依次加载：默认值 -> YAML 文件（path 非空时）-> PRODREC_ 环境变量，然后校验。
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	defaults := DefaultSettings()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envTransformFunc: PRODREC_EMBEDDING__BASE_URL -> embedding.base_url
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}

var validate = validator.New()

// Validate 校验配置取值范围。
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return core.WrapDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "config: invalid settings", err)
	}
	if s.Store.Backend == store.BackendFile && s.Store.Dir == "" {
		return core.ErrInvalidInput(core.ModuleService, "config: store.dir is required for the file backend")
	}
	if s.Store.Backend == store.BackendRedis && s.Store.Redis.Addr == "" {
		return core.ErrInvalidInput(core.ModuleService, "config: store.redis.addr is required for the redis backend")
	}
	return nil
}
