package model

import "time"

// Reel 表示用户保存的一条视频链接。
//
// Thumbnail 与页面标题由抓取服务尽力提取，抓取失败时保持为空，
// 不影响记录本身的保存。
type Reel struct {
	RID       uint      `gorm:"column:rid;primaryKey" json:"rid"` // 记录唯一标识
	CreatedAt time.Time `json:"created_at"`                       // 保存时间

	UID       uint    `gorm:"column:uid;not null;index" json:"uid"`  // 所属用户 ID
	ReelLink  string  `gorm:"not null" json:"reel_link"`             // 原始页面链接
	Thumbnail *string `json:"thumbnail"`                             // 缩略图链接（可为空）
	Name      string  `gorm:"type:varchar(191)" json:"name"`         // 展示名称（调用方提供或取自页面标题）
	Category  string  `gorm:"type:varchar(191);index" json:"category"` // 分类标签（自由文本）
}
