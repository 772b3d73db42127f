package model

import "time"

// User 表示系统用户。
type User struct {
	UID       uint      `gorm:"column:uid;primaryKey"`         // 用户 ID
	Email     string    `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（唯一）
	Password  string    `gorm:"not null"`                      // bcrypt 哈希
	CreatedAt time.Time // 创建时间

	Reels []Reel `gorm:"foreignKey:UID"`
}
