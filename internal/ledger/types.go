package ledger

import "time"

// RegisterInput carries the image fingerprints and metadata submitted with a
// register transaction. Hash fields are plain hex; the client adds the 0x
// marker on the wire.
type RegisterInput struct {
	SHA256         string
	PHash          string
	IPFSHash       string
	RequireRoyalty bool
}

// Transaction is the subset of the intermediary's transaction record the
// application cares about. Existence is what matters: a historical match is
// only trusted if its originating transaction can still be fetched.
type Transaction struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created time.Time `json:"created"`
}

// Event is the tagged variant delivered by the confirmation feed. Exactly
// one of the concrete types below is produced per feed message; unknown
// signatures are skipped by the subscriber.
type Event interface {
	eventKind() string
}

// ImageRegistered confirms a register transaction and carries the
// ledger-assigned image id. Derivative registrations set IsDerivative and
// never create a new registry root.
type ImageRegistered struct {
	ImageID        int64
	SHA256         string
	PHash          string
	IPFSHash       string
	Artist         string
	RequireRoyalty bool
	IsDerivative   bool
}

// PostLiked reports the ledger-authoritative like total for an image.
type PostLiked struct {
	ImageID    int64
	Liker      string
	TotalLikes int64
}

// RoyaltyPaid reports a royalty settlement against an image.
type RoyaltyPaid struct {
	ImageID int64
	Payer   string
}

func (ImageRegistered) eventKind() string { return "ImageRegistered" }
func (PostLiked) eventKind() string       { return "PostLiked" }
func (RoyaltyPaid) eventKind() string     { return "RoyaltyPaid" }
