package model

import "time"

// RequestHistory 播放请求历史记录
type RequestHistory struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID string    `json:"requestId" gorm:"size:64;index"`
	Query     string    `json:"query" gorm:"size:500;not null"`
	SourceID  string    `json:"sourceId" gorm:"size:64;index"`
	Title     string    `json:"title" gorm:"size:300"`
	Duration  int       `json:"duration"`
	Status    string    `json:"status" gorm:"size:20;index"` // success, error
	Cached    bool      `json:"cached" gorm:"default:false"`
	Message   string    `json:"message,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (RequestHistory) TableName() string {
	return "request_history"
}
