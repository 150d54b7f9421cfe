package post

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pixelproof/internal/ledger"
	"pixelproof/internal/pkg/fingerprint"
	"pixelproof/internal/pkg/response"
)

// MaxUploadSize caps the image payload at 10 MiB.
const MaxUploadSize = 10 << 20

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) Create(c *gin.Context) {
	userID := c.GetInt64("user_id")
	signingKey := c.GetString("signing_key")
	username := c.GetString("username")

	caption := c.PostForm("caption")
	if caption == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "caption is required")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "image file is required")
		return
	}
	if fileHeader.Size > MaxUploadSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", ErrFileTooLarge.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "cannot read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "cannot read uploaded file")
		return
	}
	if len(data) == 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrEmptyFile.Error())
		return
	}
	if len(data) > MaxUploadSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", ErrFileTooLarge.Error())
		return
	}

	mimeType := http.DetectContentType(data)
	if _, ok := fingerprint.AllowedMimeTypes[mimeType]; !ok {
		response.Error(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"only JPEG and PNG images are accepted")
		return
	}

	req := UploadRequest{
		UserID:         userID,
		Username:       username,
		SigningKey:     signingKey,
		Caption:        caption,
		Filename:       fileHeader.Filename,
		MimeType:       mimeType,
		Data:           data,
		RequireRoyalty: c.PostForm("require_royalty") == "true",
		PayRoyalty:     c.PostForm("pay_royalty") == "true",
	}

	result, err := h.service.Upload(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, fingerprint.ErrUnsupportedMediaType):
			response.Error(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", err.Error())
		case errors.Is(err, ErrMatchPending):
			response.Error(c, http.StatusConflict, "MATCH_PENDING",
				"a matching image is still awaiting confirmation, try again shortly")
		case errors.Is(err, ledger.ErrLedgerUnavailable):
			response.Error(c, http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE",
				"the ledger is temporarily unavailable")
		default:
			h.log.Error("upload failed", zap.Int64("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to process upload")
		}
		return
	}

	if result.RequiresRoyalty {
		response.Success(c, http.StatusPaymentRequired, RoyaltyPromptResponse{
			RequiresRoyalty: true,
			OriginalPost:    ToResponse(result.OriginalPost),
		})
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"post":  ToResponse(result.Post),
		"match": result.Match.String(),
	})
}

func (h *Handler) List(c *gin.Context) {
	posts, err := h.service.List(c.Request.Context())
	if err != nil {
		h.log.Error("list posts failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load posts")
		return
	}
	response.Success(c, http.StatusOK, ToResponseList(posts))
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", ErrPostNotFound.Error())
			return
		}
		h.log.Error("get post failed", zap.String("post_id", c.Param("id")), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load post")
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}
