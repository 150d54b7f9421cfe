package user

import "time"

// User is an account holder. SigningKey is the ledger address every
// transaction on the user's behalf is signed with; it is provisioned at
// registration and never rotated.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey" json:"id"`
	Username     string    `gorm:"column:username;uniqueIndex" json:"username"`
	Email        string    `gorm:"column:email;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	SigningKey   string    `gorm:"column:signing_key" json:"signing_key"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

// Like is one row of a user's append-only liked-posts set, used to make the
// like endpoint an idempotent no-op on repeats.
type Like struct {
	UserID    int64     `gorm:"column:user_id;primaryKey" json:"user_id"`
	PostID    string    `gorm:"column:post_id;primaryKey" json:"post_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Like) TableName() string { return "user_likes" }
