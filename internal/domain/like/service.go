package like

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pixelproof/internal/domain/post"
)

type gateway interface {
	SubmitLikePost(ctx context.Context, imageID int64, signingKey string) (string, error)
	HasLiked(ctx context.Context, imageID int64, userAddress string) (bool, error)
}

type likeStore interface {
	AddLike(ctx context.Context, userID int64, postID string) error
	HasLiked(ctx context.Context, userID int64, postID string) (bool, error)
}

type postStore interface {
	GetByID(ctx context.Context, id string) (*post.Post, error)
}

type Service struct {
	likes   likeStore
	posts   postStore
	gateway gateway
	log     *zap.Logger
}

func NewService(likes likeStore, posts postStore, gateway gateway, log *zap.Logger) *Service {
	return &Service{likes: likes, posts: posts, gateway: gateway, log: log}
}

// LikeResult reports what the like attempt did. AlreadyLiked means the user
// had liked this post before and nothing was submitted. NotRegistered means
// the image has no confirmed on-chain identity yet; the like is not recorded
// and the caller should retry later.
type LikeResult struct {
	AlreadyLiked  bool
	NotRegistered bool
	TxID          string
}

// Like records a like against the root image of the given post. Derivatives
// share their root's on-chain like counter, so liking any edit of an image
// likes the image itself. The authoritative count arrives later through the
// event feed; this method never touches the local counter.
func (s *Service) Like(ctx context.Context, userID int64, signingKey, postID string) (*LikeResult, error) {
	target, err := s.resolveRoot(ctx, postID)
	if err != nil {
		return nil, err
	}
	if target.ImageID == nil {
		// Not an error: the registration simply has not been confirmed by
		// the event feed yet.
		return &LikeResult{NotRegistered: true}, nil
	}

	liked, err := s.likes.HasLiked(ctx, userID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("check liked set: %w", err)
	}
	if liked {
		return &LikeResult{AlreadyLiked: true}, nil
	}

	// The chain may already know this signing key liked the image, for
	// example after a local database reset. Re-submitting would revert.
	onChain, err := s.gateway.HasLiked(ctx, *target.ImageID, signingKey)
	if err != nil {
		return nil, fmt.Errorf("query liked state: %w", err)
	}

	res := &LikeResult{}
	if !onChain {
		txID, err := s.gateway.SubmitLikePost(ctx, *target.ImageID, signingKey)
		if err != nil {
			return nil, fmt.Errorf("submit like for image %d: %w", *target.ImageID, err)
		}
		res.TxID = txID
	} else {
		s.log.Debug("like already on chain, recording locally only",
			zap.Int64("image_id", *target.ImageID),
			zap.Int64("user_id", userID))
	}

	if err := s.likes.AddLike(ctx, userID, target.ID); err != nil {
		return nil, fmt.Errorf("record like: %w", err)
	}
	return res, nil
}

// HasLiked reports whether the user has liked the post, resolving
// derivatives to their root first.
func (s *Service) HasLiked(ctx context.Context, userID int64, postID string) (bool, error) {
	target, err := s.resolveRoot(ctx, postID)
	if err != nil {
		return false, err
	}
	return s.likes.HasLiked(ctx, userID, target.ID)
}

func (s *Service) resolveRoot(ctx context.Context, postID string) (*post.Post, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	for p.DerivedFrom != nil {
		p, err = s.posts.GetByID(ctx, *p.DerivedFrom)
		if err != nil {
			return nil, fmt.Errorf("resolve original post: %w", err)
		}
	}
	return p, nil
}
