package post

import "time"

type PostResponse struct {
	ID                 string    `json:"id"`
	Caption            string    `json:"caption"`
	ArtistName         string    `json:"artist_name"`
	Org                string    `json:"org,omitempty"`
	IPFSLink           string    `json:"ipfs_link"`
	TxID               *string   `json:"tx_id,omitempty"`
	ImageID            *int64    `json:"image_id,omitempty"`
	DerivedFrom        *string   `json:"derived_from,omitempty"`
	OriginalArtistName *string   `json:"original_artist_name,omitempty"`
	RequireRoyalty     bool      `json:"require_royalty"`
	LikeCount          int64     `json:"like_count"`
	CreatedAt          time.Time `json:"created_at"`
}

type RoyaltyPromptResponse struct {
	RequiresRoyalty bool         `json:"requires_royalty"`
	OriginalPost    PostResponse `json:"original_post"`
}

func ToResponse(p *Post) PostResponse {
	return PostResponse{
		ID:                 p.ID,
		Caption:            p.Caption,
		ArtistName:         p.ArtistName,
		Org:                p.Org,
		IPFSLink:           p.IPFSLink,
		TxID:               p.TxID,
		ImageID:            p.ImageID,
		DerivedFrom:        p.DerivedFrom,
		OriginalArtistName: p.OriginalArtistName,
		RequireRoyalty:     p.RequireRoyalty,
		LikeCount:          p.LikeCount,
		CreatedAt:          p.CreatedAt,
	}
}

func ToResponseList(posts []Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, ToResponse(&posts[i]))
	}
	return out
}
