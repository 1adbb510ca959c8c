package models

import (
	"sync"

	"github.com/kamishop/internal/logger"

	"gorm.io/gorm"
)

// legacyCardKeyIndexes 早期版本在 (product_id, code) 上建过唯一索引，
// 与"重复卡密允许"的库存策略冲突，准备 schema 时存在即移除
var legacyCardKeyIndexes = []string{
	"idx_card_keys_product_code",
	"uniq_card_keys_product_code",
}

var (
	schemaMu   sync.Mutex
	schemaDone = map[*gorm.DB]struct{}{}
)

// EnsureSchema 幂等的建表与索引准备，同一连接在进程内只执行一次。
// 任何业务路径都不做按错误补救式迁移，schema 演进只经过这里。
func EnsureSchema(db *gorm.DB) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if _, ok := schemaDone[db]; ok {
		return nil
	}
	if err := migrateAll(db); err != nil {
		return err
	}
	DropLegacyCardKeyIndexes(db)
	schemaDone[db] = struct{}{}
	return nil
}

func migrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&Admin{},
		&Category{},
		&Product{},
		&CardKey{},
		&Review{},
		&Setting{},
	)
}

// DropLegacyCardKeyIndexes 尽力移除旧唯一索引，失败只记录不阻断调用方
func DropLegacyCardKeyIndexes(db *gorm.DB) {
	migrator := db.Migrator()
	for _, name := range legacyCardKeyIndexes {
		if !migrator.HasIndex(&CardKey{}, name) {
			continue
		}
		if err := migrator.DropIndex(&CardKey{}, name); err != nil {
			logger.Warnw("legacy_card_key_index_drop_failed", "index", name, "error", err)
		}
	}
}
