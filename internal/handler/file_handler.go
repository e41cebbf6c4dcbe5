package handler

import (
	"net/http"

	"linkchat/internal/app/storage"
	"linkchat/internal/pkg/auth/jwt"
	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/req"
	"linkchat/internal/pkg/resp"
)

// PresignUploadInput describes the file a client is about to upload.
type PresignUploadInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignUploadURL issues a time-limited upload URL for one image under the caller's prefix.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnauthorized))
			return
		}
		if deps.Storage == nil {
			resp.RespondError(w, errs.NewError(errs.ErrFileStorageUnavailable))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		if err := storage.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, err)
			return
		}
		if err := storage.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, err)
			return
		}

		fileKey := storage.ObjectKey(payload.UserID, input.FileName)
		url, err := deps.Storage.PresignUpload(r.Context(), fileKey, input.MimeType, input.FileSize, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// HandlePresignDownloadURL redirects a logged in client to a time-limited download URL.
// Any well-formed key may be fetched since images are shared in conversations.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jwt.GetPayloadFromContext(r) == nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnauthorized))
			return
		}
		if deps.Storage == nil {
			resp.RespondError(w, errs.NewError(errs.ErrFileStorageUnavailable))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if _, ok := storage.ParseObjectKey(fileKey); !ok {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), fileKey, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
