package registry

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("image record not found")

type Repository interface {
	Create(ctx context.Context, rec *ImageRecord) error
	GetBySHA256(ctx context.Context, sha256 string) (*ImageRecord, error)
	// SetImageID attaches the ledger-assigned id to an existing record.
	// The only mutation a record ever sees.
	SetImageID(ctx context.Context, sha256 string, imageID int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rec *ImageRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repository) GetBySHA256(ctx context.Context, sha256 string) (*ImageRecord, error) {
	var rec ImageRecord
	err := r.db.WithContext(ctx).Where("sha256 = ?", sha256).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return &rec, err
}

func (r *repository) SetImageID(ctx context.Context, sha256 string, imageID int64) error {
	return r.db.WithContext(ctx).
		Model(&ImageRecord{}).
		Where("sha256 = ?", sha256).
		Update("image_id", imageID).Error
}
