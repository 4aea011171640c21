package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MappingRevision 字段映射的一个已发布版本
type MappingRevision struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Field     string    `json:"field" gorm:"size:255;uniqueIndex:idx_field_version"`
	Version   int       `json:"version" gorm:"uniqueIndex:idx_field_version"`
	Source    string    `json:"source" gorm:"type:text"` // 序列化后的映射 JSON
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (MappingRevision) TableName() string {
	return "mapping_revisions"
}

// BeforeCreate 生成 ID
func (r *MappingRevision) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// CreateRevision 为字段追加一个新版本, 版本号自增
func CreateRevision(db *gorm.DB, field, source string) (*MappingRevision, error) {
	rev := &MappingRevision{Field: field, Source: source}
	err := db.Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&MappingRevision{}).
			Where("field = ?", field).
			Select("COALESCE(MAX(version), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		rev.Version = last + 1
		return tx.Create(rev).Error
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// GetLatestRevision 获取字段的最新版本
func GetLatestRevision(db *gorm.DB, field string) (*MappingRevision, error) {
	var rev MappingRevision
	if err := db.Where("field = ?", field).Order("version DESC").First(&rev).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

// GetRevisions 获取字段的全部版本, 按版本号升序
func GetRevisions(db *gorm.DB, field string) ([]MappingRevision, error) {
	var revs []MappingRevision
	if err := db.Where("field = ?", field).Order("version ASC").Find(&revs).Error; err != nil {
		return nil, err
	}
	return revs, nil
}

// GetFieldNames 获取所有已持久化的字段名
func GetFieldNames(db *gorm.DB) ([]string, error) {
	var names []string
	if err := db.Model(&MappingRevision{}).Distinct("field").Order("field").Pluck("field", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteRevisions 删除字段的全部版本
func DeleteRevisions(db *gorm.DB, field string) error {
	return db.Where("field = ?", field).Delete(&MappingRevision{}).Error
}
