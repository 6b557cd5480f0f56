package database

import (
	"fmt"
	"hash/fnv"

	"gorm.io/gorm"
)

// AdvisoryXactLock 在当前事务内获取 PostgreSQL 事务级咨询锁，事务结束自动释放。
// 非 PostgreSQL 方言（如测试用 SQLite）直接跳过。
func AdvisoryXactLock(tx *gorm.DB, namespace, key string) error {
	if tx == nil || namespace == "" || key == "" {
		return nil
	}
	if tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", AdvisoryKey(namespace, key)).Error; err != nil {
		return fmt.Errorf("获取咨询锁失败: %w", err)
	}
	return nil
}

// AdvisoryKey 将命名空间与业务键散列为 64 位锁键
func AdvisoryKey(namespace, key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
