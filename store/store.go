// Package store 提供 core.Store 的各个后端实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
//	var s core.Store = store.NewMemoryStore()
//	var kv core.KeyValueStore = store.NewMemoryStore()
package store

import (
	"context"
	"fmt"

	"github.com/rushteam/prodrec/core"
)

// 后端名称
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Options 描述要打开的存储后端。
type Options struct {
	Backend string `koanf:"backend" validate:"oneof=memory file badger redis"`
	// Dir 用于 file / badger 后端
	Dir   string      `koanf:"dir"`
	Redis RedisConfig `koanf:"redis"`
}

// Open 按 Options.Backend 创建 Store。
func Open(ctx context.Context, opts Options) (core.Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return NewFileStore(opts.Dir)
	case BackendBadger:
		return OpenBadgerStore(opts.Dir)
	case BackendRedis:
		return NewRedisStore(ctx, opts.Redis)
	default:
		return nil, core.ErrInvalidInput(core.ModuleStore, fmt.Sprintf("store: unknown backend %q", opts.Backend))
	}
}
