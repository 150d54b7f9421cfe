package post

import "time"

// Post is one user-facing upload event, original or derivative.
//
// Lifecycle: created at upload time with TxID set and ImageID nil (pending);
// the reconciler attaches ImageID once the ledger confirms registration.
// Like counters move only on ledger PostLiked events. Rows are never deleted.
//
// Invariants: a derivative always has DerivedFrom set; once confirmed its
// ImageID equals the referenced original's.
type Post struct {
	ID                 string    `gorm:"column:id;primaryKey" json:"id"`
	UserID             int64     `gorm:"column:user_id;index" json:"user_id"`
	Caption            string    `gorm:"column:caption" json:"caption"`
	SigningKey         string    `gorm:"column:signing_key" json:"-"`
	SHA256             string    `gorm:"column:sha256;index" json:"sha256"`
	PHash              string    `gorm:"column:phash" json:"phash"`
	IPFSHash           string    `gorm:"column:ipfs_hash" json:"ipfs_hash"`
	IPFSLink           string    `gorm:"column:ipfs_link" json:"ipfs_link"`
	TxID               *string   `gorm:"column:tx_id" json:"tx_id,omitempty"`
	ImageID            *int64    `gorm:"column:image_id;index" json:"image_id,omitempty"`
	DerivedFrom        *string   `gorm:"column:derived_from" json:"derived_from,omitempty"`
	OriginalArtistName *string   `gorm:"column:original_artist_name" json:"original_artist_name,omitempty"`
	RequireRoyalty     bool      `gorm:"column:require_royalty" json:"require_royalty"`
	LikeCount          int64     `gorm:"column:like_count" json:"like_count"`
	ArtistName         string    `gorm:"column:artist_name" json:"artist_name"`
	Org                string    `gorm:"column:org" json:"org"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Post) TableName() string { return "posts" }

// IsDerivative reports whether the post derives from a registered original.
func (p *Post) IsDerivative() bool { return p.DerivedFrom != nil }
