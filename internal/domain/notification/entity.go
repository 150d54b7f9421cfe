package notification

import "time"

// Notification is a user-facing message created as a side effect of
// duplication, like, and royalty events. Mutated only by mark-as-read,
// never deleted.
type Notification struct {
	ID        int64     `gorm:"column:id;primaryKey" json:"id"`
	UserID    int64     `gorm:"column:user_id;index" json:"user_id"`
	Message   string    `gorm:"column:message" json:"message"`
	Read      bool      `gorm:"column:read" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
