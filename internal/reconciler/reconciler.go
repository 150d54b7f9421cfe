// Package reconciler folds confirmed ledger events back into local state.
// The ledger is the source of truth for image ids, like counts and royalty
// payments; nothing else in the application mutates those fields.
package reconciler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pixelproof/internal/domain/post"
	"pixelproof/internal/domain/registry"
	"pixelproof/internal/ledger"
)

type postStore interface {
	AttachImageID(ctx context.Context, sha256, signingKey string, imageID int64) (int64, error)
	ListByImageID(ctx context.Context, imageID int64) ([]post.Post, error)
	GetRootByImageID(ctx context.Context, imageID int64) (*post.Post, error)
	SetLikeCount(ctx context.Context, id string, total int64) error
}

type registryStore interface {
	Create(ctx context.Context, rec *registry.ImageRecord) error
	GetBySHA256(ctx context.Context, sha256 string) (*registry.ImageRecord, error)
	SetImageID(ctx context.Context, sha256 string, imageID int64) error
}

type notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

type Reconciler struct {
	posts    postStore
	registry registryStore
	notify   notifier
	log      *zap.Logger
}

func New(posts postStore, registry registryStore, notify notifier, log *zap.Logger) *Reconciler {
	return &Reconciler{posts: posts, registry: registry, notify: notify, log: log}
}

// Run consumes events until the context is cancelled or the channel closes.
// A failed event is logged and dropped; the loop itself never stops on an
// event error, otherwise one malformed event would stall the whole feed.
func (r *Reconciler) Run(ctx context.Context, events <-chan ledger.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := r.Apply(ctx, ev); err != nil {
				r.log.Error("event not applied", zap.Error(err))
			}
		}
	}
}

// Apply folds a single confirmed event into local state.
func (r *Reconciler) Apply(ctx context.Context, ev ledger.Event) error {
	switch e := ev.(type) {
	case ledger.ImageRegistered:
		return r.applyRegistration(ctx, e)
	case ledger.PostLiked:
		return r.applyLike(ctx, e)
	case ledger.RoyaltyPaid:
		return r.applyRoyalty(ctx, e)
	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}
}

func (r *Reconciler) applyRegistration(ctx context.Context, e ledger.ImageRegistered) error {
	if e.IsDerivative {
		// Derivative registrations carry the root image id. The local
		// derivative post was written at submit time and keeps pointing at
		// its root; the only thing left to do is tell the original artist.
		root, err := r.posts.GetRootByImageID(ctx, e.ImageID)
		if err != nil {
			if errors.Is(err, post.ErrPostNotFound) {
				r.log.Warn("derivative registered for unknown image",
					zap.Int64("image_id", e.ImageID))
				return nil
			}
			return fmt.Errorf("find root for image %d: %w", e.ImageID, err)
		}
		msg := "A derivative of your image was registered on the ledger"
		if err := r.notify.Notify(ctx, root.UserID, msg); err != nil {
			r.log.Warn("derivative notification failed",
				zap.Int64("user_id", root.UserID), zap.Error(err))
		}
		return nil
	}

	if err := r.upsertRecord(ctx, e); err != nil {
		return err
	}

	rows, err := r.posts.AttachImageID(ctx, e.SHA256, e.Artist, e.ImageID)
	if err != nil {
		return fmt.Errorf("attach image id %d: %w", e.ImageID, err)
	}
	if rows == 0 {
		// Either already attached (replayed event) or the image was
		// registered through another node. The registry record above still
		// keeps the corpus complete.
		r.log.Debug("no pending post for registration",
			zap.Int64("image_id", e.ImageID),
			zap.String("sha256", e.SHA256))
	} else {
		r.log.Info("registration confirmed",
			zap.Int64("image_id", e.ImageID),
			zap.String("sha256", e.SHA256))
	}
	return nil
}

func (r *Reconciler) upsertRecord(ctx context.Context, e ledger.ImageRegistered) error {
	existing, err := r.registry.GetBySHA256(ctx, e.SHA256)
	if err != nil {
		if !errors.Is(err, registry.ErrRecordNotFound) {
			return fmt.Errorf("lookup registry record: %w", err)
		}
		rec := &registry.ImageRecord{
			ImageID:        &e.ImageID,
			SHA256:         e.SHA256,
			PHash:          e.PHash,
			IPFSHash:       e.IPFSHash,
			ArtistAddress:  e.Artist,
			RequireRoyalty: e.RequireRoyalty,
		}
		if err := r.registry.Create(ctx, rec); err != nil {
			return fmt.Errorf("create registry record: %w", err)
		}
		return nil
	}
	if existing.ImageID != nil {
		return nil
	}
	if err := r.registry.SetImageID(ctx, e.SHA256, e.ImageID); err != nil {
		return fmt.Errorf("confirm registry record: %w", err)
	}
	return nil
}

func (r *Reconciler) applyLike(ctx context.Context, e ledger.PostLiked) error {
	posts, err := r.posts.ListByImageID(ctx, e.ImageID)
	if err != nil {
		return fmt.Errorf("list posts for image %d: %w", e.ImageID, err)
	}
	if len(posts) == 0 {
		r.log.Warn("like event for unknown image", zap.Int64("image_id", e.ImageID))
		return nil
	}

	for i := range posts {
		if err := r.posts.SetLikeCount(ctx, posts[i].ID, e.TotalLikes); err != nil {
			return fmt.Errorf("set like count on %s: %w", posts[i].ID, err)
		}
	}

	// Every post in the derivation chain shares the counter, so every owner
	// hears about the like. Owners with several posts in the chain are
	// notified once.
	seen := make(map[int64]struct{}, len(posts))
	for i := range posts {
		if _, ok := seen[posts[i].UserID]; ok {
			continue
		}
		seen[posts[i].UserID] = struct{}{}
		msg := fmt.Sprintf("Your post now has %d likes", e.TotalLikes)
		if err := r.notify.Notify(ctx, posts[i].UserID, msg); err != nil {
			r.log.Warn("like notification failed",
				zap.Int64("user_id", posts[i].UserID), zap.Error(err))
		}
	}
	return nil
}

func (r *Reconciler) applyRoyalty(ctx context.Context, e ledger.RoyaltyPaid) error {
	root, err := r.posts.GetRootByImageID(ctx, e.ImageID)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			r.log.Warn("royalty event for unknown image", zap.Int64("image_id", e.ImageID))
			return nil
		}
		return fmt.Errorf("find root for image %d: %w", e.ImageID, err)
	}

	msg := fmt.Sprintf("You received a royalty payment for your image from %s", e.Payer)
	if err := r.notify.Notify(ctx, root.UserID, msg); err != nil {
		r.log.Warn("royalty notification failed",
			zap.Int64("user_id", root.UserID), zap.Error(err))
	}
	r.log.Info("royalty recorded",
		zap.Int64("image_id", e.ImageID),
		zap.String("payer", e.Payer))
	return nil
}
