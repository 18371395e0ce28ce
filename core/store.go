package core

import "context"

// Store 是存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 领域层只依赖接口，不依赖具体的存储后端
//
// 使用场景：
//   - 商品目录、用户画像、购买记录：整份集合以 JSON 文档存在一个 key 下
//   - 行为事件日志：event.KVLog 在一个 key 上做追加/清空
//   - 推荐快照：整体覆盖写入（Set 对单个 key 是原子的）
//
// 实现：
//   - store.MemoryStore（测试/原型）
//   - store.FileStore（每个 key 一个 JSON 文件，兼容离线数据目录）
//   - store.BadgerStore（嵌入式持久化 KV）
//   - store.RedisStore（共享部署）
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，必须是整体替换
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取，不存在的 key 不出现在结果中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet 批量写入
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	// Close 关闭连接/释放资源
	Close() error
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsStoreNotSupported 检查错误是否为操作不支持
func IsStoreNotSupported(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// KeyValueStore 在 Store 基础上提供列表操作。
// event.KVLog 在后端实现此接口时用列表追加事件（O(1) 追加，LTrim 丢弃已消费的前缀），
// 否则退化为对单个 JSON 数组的读-改-写。
type KeyValueStore interface {
	Store

	// RPush 向列表尾部追加元素
	RPush(ctx context.Context, key string, values ...[]byte) error

	// LRange 读取列表区间 [start, stop]，stop 为 -1 表示到末尾
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// LTrim 只保留列表区间 [start, stop]，下标语义同 LRange；保留区间为空时删除列表
	LTrim(ctx context.Context, key string, start, stop int64) error
}
