package post

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id string) (*Post, error)
	ListNewestFirst(ctx context.Context) ([]Post, error)
	// ListSubmitted returns the match corpus: every post whose register
	// transaction has been submitted. Pending posts without a tx id never
	// appear.
	ListSubmitted(ctx context.Context) ([]Post, error)
	ListByImageID(ctx context.Context, imageID int64) ([]Post, error)
	// GetRootByImageID resolves the non-derivative post for a confirmed
	// ledger image id.
	GetRootByImageID(ctx context.Context, imageID int64) (*Post, error)
	// AttachImageID back-fills the ledger-assigned image id onto the post
	// identified by content hash and submitting key. Returns the number of
	// posts updated; zero means no matching post (a reconciliation miss).
	AttachImageID(ctx context.Context, sha256, signingKey string, imageID int64) (int64, error)
	// SetLikeCount overwrites the like counter with the ledger-reported
	// total. A targeted field update so it cannot clobber concurrent
	// confirmation writes.
	SetLikeCount(ctx context.Context, id string, total int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Post) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*Post, error) {
	var p Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	return &p, err
}

func (r *repository) ListNewestFirst(ctx context.Context) ([]Post, error) {
	var posts []Post
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error
	return posts, err
}

func (r *repository) ListSubmitted(ctx context.Context) ([]Post, error) {
	var posts []Post
	err := r.db.WithContext(ctx).Where("tx_id IS NOT NULL").Find(&posts).Error
	return posts, err
}

func (r *repository) ListByImageID(ctx context.Context, imageID int64) ([]Post, error) {
	var posts []Post
	err := r.db.WithContext(ctx).Where("image_id = ?", imageID).Find(&posts).Error
	return posts, err
}

func (r *repository) GetRootByImageID(ctx context.Context, imageID int64) (*Post, error) {
	var p Post
	err := r.db.WithContext(ctx).
		Where("image_id = ? AND derived_from IS NULL", imageID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	return &p, err
}

func (r *repository) AttachImageID(ctx context.Context, sha256, signingKey string, imageID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Post{}).
		Where("sha256 = ? AND signing_key = ? AND image_id IS NULL", sha256, signingKey).
		Update("image_id", imageID)
	return res.RowsAffected, res.Error
}

func (r *repository) SetLikeCount(ctx context.Context, id string, total int64) error {
	return r.db.WithContext(ctx).
		Model(&Post{}).
		Where("id = ?", id).
		Update("like_count", total).Error
}
