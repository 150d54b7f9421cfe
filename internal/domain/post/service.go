package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pixelproof/internal/ledger"
	"pixelproof/internal/pkg/fingerprint"
)

// Gateway is the slice of the ledger client the orchestrator needs.
type Gateway interface {
	SubmitRegisterOriginal(ctx context.Context, in ledger.RegisterInput, signingKey string) (string, error)
	SubmitRegisterDerivative(ctx context.Context, in ledger.RegisterInput, originalImageID int64, signingKey string) (string, error)
	SubmitPayRoyalty(ctx context.Context, imageID int64, signingKey string) (string, error)
	GetTransaction(ctx context.Context, txID string) (*ledger.Transaction, error)
	UploadBlob(ctx context.Context, data []byte, filename, contentType string) (ledger.BlobRef, error)
}

type notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

type Service struct {
	posts     Repository
	gateway   Gateway
	notify    notifier
	threshold int
	org       string
	log       *zap.Logger
}

func NewService(posts Repository, gateway Gateway, notify notifier, threshold int, org string, log *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Service{
		posts:     posts,
		gateway:   gateway,
		notify:    notify,
		threshold: threshold,
		org:       org,
		log:       log,
	}
}

// UploadRequest carries everything the orchestrator needs to process one
// submitted image.
type UploadRequest struct {
	UserID     int64
	Username   string
	SigningKey string
	Caption    string
	Filename   string
	MimeType   string
	Data       []byte

	// RequireRoyalty marks an original so that later derivatives owe a
	// royalty before registration.
	RequireRoyalty bool
	// PayRoyalty is the uploader's consent to pay when a royalty is due.
	PayRoyalty bool
}

// UploadResult is either a stored post or a royalty prompt. When
// RequiresRoyalty is set no post was created and OriginalPost identifies who
// must be paid.
type UploadResult struct {
	Post            *Post
	Match           MatchKind
	RequiresRoyalty bool
	OriginalPost    *Post
}

// Upload runs the whole pipeline for one image: fingerprint, match against
// the submitted corpus, royalty gate, blob upload, ledger registration and
// finally the local record. The local record is written last so a gateway
// failure leaves no half-registered post behind.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	fp, err := fingerprint.Compute(req.Data, req.MimeType)
	if err != nil {
		return nil, err
	}

	corpus, err := s.posts.ListSubmitted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submitted posts: %w", err)
	}

	match, err := s.verifyMatch(ctx, FindMatch(fp, corpus, s.threshold))
	if err != nil {
		return nil, err
	}

	var root *Post
	if match.Kind != MatchNone {
		root, err = s.resolveRoot(ctx, match.Candidate)
		if err != nil {
			return nil, err
		}

		// The gate applies to the owner as well: re-uploading one's own
		// royalty-required original still prompts before anything is
		// submitted or stored.
		if root.RequireRoyalty {
			if !req.PayRoyalty {
				return &UploadResult{RequiresRoyalty: true, OriginalPost: root}, nil
			}
			// Best effort. The payment will be retried by nobody, but a
			// failed payment must not block the derivative registration.
			if _, err := s.gateway.SubmitPayRoyalty(ctx, *root.ImageID, req.SigningKey); err != nil {
				s.log.Warn("royalty payment failed",
					zap.Int64("image_id", *root.ImageID), zap.Error(err))
			}
		}
	}

	blob, err := s.gateway.UploadBlob(ctx, req.Data, req.Filename, req.MimeType)
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}

	in := ledger.RegisterInput{
		SHA256:         fp.SHA256,
		PHash:          fp.PHash,
		IPFSHash:       blob.Hash,
		RequireRoyalty: req.RequireRoyalty,
	}

	var txID string
	if root != nil {
		// Derivatives never carry their own royalty flag.
		in.RequireRoyalty = false
		txID, err = s.gateway.SubmitRegisterDerivative(ctx, in, *root.ImageID, req.SigningKey)
	} else {
		txID, err = s.gateway.SubmitRegisterOriginal(ctx, in, req.SigningKey)
	}
	if err != nil {
		// The blob is already published and cannot be recalled; the post
		// record is simply never written.
		s.log.Warn("registration failed after blob upload",
			zap.String("ipfs_hash", blob.Hash),
			zap.Error(err))
		return nil, fmt.Errorf("register image: %w", err)
	}

	p := &Post{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Caption:        req.Caption,
		SigningKey:     req.SigningKey,
		SHA256:         fp.SHA256,
		PHash:          fp.PHash,
		IPFSHash:       blob.Hash,
		IPFSLink:       blob.Link,
		TxID:           &txID,
		RequireRoyalty: in.RequireRoyalty,
		ArtistName:     req.Username,
		Org:            s.org,
	}
	if root != nil {
		p.DerivedFrom = &root.ID
		p.OriginalArtistName = &root.ArtistName
		// Derivatives share their root's on-chain identity so that like and
		// royalty events fan out to the whole derivation chain.
		p.ImageID = root.ImageID
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("store post: %w", err)
	}

	if root != nil && root.UserID != req.UserID {
		msg := fmt.Sprintf("%s uploaded an image derived from your post", req.Username)
		if err := s.notify.Notify(ctx, root.UserID, msg); err != nil {
			s.log.Warn("derivative notification failed",
				zap.Int64("user_id", root.UserID), zap.Error(err))
		}
	}

	s.log.Info("post created",
		zap.String("post_id", p.ID),
		zap.String("tx_id", txID),
		zap.String("match", match.Kind.String()))

	return &UploadResult{Post: p, Match: match.Kind}, nil
}

// verifyMatch checks that a matched candidate is actually usable: its
// transaction must still exist on the ledger and the registration must have
// been confirmed (image id assigned by the reconciler). A candidate whose
// transaction vanished is treated as no match; a confirmed-but-pending one
// blocks the upload because royalty obligations cannot be resolved yet.
func (s *Service) verifyMatch(ctx context.Context, match MatchResult) (MatchResult, error) {
	if match.Kind == MatchNone {
		return match, nil
	}

	if _, err := s.gateway.GetTransaction(ctx, *match.Candidate.TxID); err != nil {
		if errors.Is(err, ledger.ErrTxNotFound) {
			s.log.Warn("matched post has no live transaction, ignoring match",
				zap.String("post_id", match.Candidate.ID),
				zap.String("tx_id", *match.Candidate.TxID))
			return MatchResult{Kind: MatchNone}, nil
		}
		return MatchResult{}, fmt.Errorf("verify transaction %s: %w", *match.Candidate.TxID, err)
	}

	if match.Candidate.ImageID == nil {
		return MatchResult{}, ErrMatchPending
	}

	return match, nil
}

// resolveRoot walks a matched candidate back to its original. Derivatives of
// derivatives all point at the same root, so a single hop suffices for
// records written by this service; older data is walked defensively.
func (s *Service) resolveRoot(ctx context.Context, candidate *Post) (*Post, error) {
	current := candidate
	for current.DerivedFrom != nil {
		parent, err := s.posts.GetByID(ctx, *current.DerivedFrom)
		if err != nil {
			return nil, fmt.Errorf("resolve original of %s: %w", current.ID, err)
		}
		current = parent
	}
	if current.ImageID == nil {
		return nil, ErrMatchPending
	}
	return current, nil
}

func (s *Service) List(ctx context.Context) ([]Post, error) {
	return s.posts.ListNewestFirst(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (*Post, error) {
	return s.posts.GetByID(ctx, id)
}
