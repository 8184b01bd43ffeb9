package models

import "time"

// DailySecret holds the active token secret for one weekday (1=Monday through
// 7=Sunday). Rotating it immediately invalidates every QR printed under the
// previous value for that weekday.
type DailySecret struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Weekday   int       `gorm:"not null;uniqueIndex" json:"weekday"`
	Secret    string    `gorm:"size:128;not null" json:"-"`
	RotatedAt time.Time `json:"rotated_at"`
	CreatedAt time.Time `json:"created_at"`
}
