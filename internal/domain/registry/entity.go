package registry

import "time"

// ImageRecord is the canonical registry entry for a confirmed root image.
// It mirrors what the ledger has confirmed: created when an original
// registration is observed on the event feed, mutated only to attach the
// ledger-assigned image id, never deleted.
type ImageRecord struct {
	ID             int64     `gorm:"column:id;primaryKey" json:"id"`
	ImageID        *int64    `gorm:"column:image_id;index" json:"image_id,omitempty"`
	SHA256         string    `gorm:"column:sha256;index" json:"sha256"`
	PHash          string    `gorm:"column:phash" json:"phash"`
	IPFSHash       string    `gorm:"column:ipfs_hash" json:"ipfs_hash"`
	ArtistAddress  string    `gorm:"column:artist_address" json:"artist_address"`
	ArtistName     string    `gorm:"column:artist_name" json:"artist_name"`
	Org            string    `gorm:"column:org" json:"org"`
	RequireRoyalty bool      `gorm:"column:require_royalty" json:"require_royalty"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (ImageRecord) TableName() string { return "image_records" }
