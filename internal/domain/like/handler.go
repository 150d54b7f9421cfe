package like

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pixelproof/internal/domain/post"
	"pixelproof/internal/ledger"
	"pixelproof/internal/pkg/response"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) Like(c *gin.Context) {
	userID := c.GetInt64("user_id")
	signingKey := c.GetString("signing_key")
	postID := c.Param("id")

	res, err := h.service.Like(c.Request.Context(), userID, signingKey, postID)
	if err != nil {
		switch {
		case errors.Is(err, post.ErrPostNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", post.ErrPostNotFound.Error())
		case errors.Is(err, ledger.ErrLedgerUnavailable):
			response.Error(c, http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE",
				"the ledger is temporarily unavailable")
		default:
			h.log.Error("like failed", zap.String("post_id", postID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to like post")
		}
		return
	}

	if res.NotRegistered {
		response.Success(c, http.StatusOK, gin.H{
			"message": "image not yet registered on the ledger",
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"already_liked": res.AlreadyLiked,
		"tx_id":         res.TxID,
	})
}

func (h *Handler) Liked(c *gin.Context) {
	userID := c.GetInt64("user_id")
	postID := c.Param("id")

	liked, err := h.service.HasLiked(c.Request.Context(), userID, postID)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", post.ErrPostNotFound.Error())
			return
		}
		h.log.Error("liked lookup failed", zap.String("post_id", postID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to check like state")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"liked": liked})
}
