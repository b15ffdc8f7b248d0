package handler

import (
	"errors"
	"net/http"

	"anonchat/internal/app/chat"
	"anonchat/internal/app/storage"
	"anonchat/internal/app/user"
	"anonchat/internal/pkg/errs"
	"anonchat/internal/pkg/logx"
	"anonchat/internal/pkg/randx"
	"anonchat/internal/pkg/req"
	"anonchat/internal/pkg/resp"
)

// multipartMemory is how much of an uploaded form is buffered in memory before spilling to disk.
const multipartMemory = 8 << 20

// PresignUploadInput defines the JSON input structure for generating upload URL.
type PresignUploadInput struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	MimeType string `json:"mime_type" validate:"required"`
	FileSize int64  `json:"file_size" validate:"gt=0"`
}

// HandlePresignUploadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file upload, scoped to the caller. Only users in a session may upload.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requireSession(w, r, deps)
		if !ok {
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := chat.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := chat.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileKey := storage.NewObjectKey(id, input.FileName)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			chat.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, storageError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// HandleUpload accepts a multipart file upload and stores it through the server, for clients
// that cannot PUT to a presigned URL. The same rules as HandlePresignUploadURL apply.
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requireSession(w, r, deps)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, chat.MaxAttachmentSize+multipartMemory)

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				resp.RespondError(w, r, errs.NewError(errs.ErrFileSizeTooLarge))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		mimeType := header.Header.Get("Content-Type")

		if err := chat.ValidateFileSize(header.Size); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := chat.ValidateFileType(header.Filename, mimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileKey := storage.NewObjectKey(id, header.Filename)

		if err := deps.StorageService.Upload(r.Context(), fileKey, mimeType, file); err != nil {
			resp.RespondError(w, r, storageError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"fileKey":  fileKey,
			"fileName": header.Filename,
		})
	}
}

// HandlePresignDownloadURL creates an HTTP HandlerFunc that redirects to a time-limited,
// pre-signed download URL. Callers may fetch their own files and their current partner's.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileKey := r.URL.Query().Get("k")
		if fileKey == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		owner, ok := storage.OwnerOf(fileKey)
		if !ok || !randx.IsValidUserID(owner.String()) {
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentKeyInvalid))
			return
		}

		u, err := deps.StateMachine.Lookup(r.Context(), identity(r))
		if err != nil {
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		if owner != u.ID && (!u.IsPaired() || owner != u.PartnerID) {
			logx.Warn("Download rejected: key not owned by caller or partner", "user_id", u.ID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentKeyInvalid))
			return
		}

		url, err := deps.StorageService.PresignDownload(r.Context(), fileKey, chat.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, storageError(err))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

// requireSession answers with an error unless the caller is currently paired.
func requireSession(w http.ResponseWriter, r *http.Request, deps *AppDeps) (user.ID, bool) {
	u, err := deps.StateMachine.Lookup(r.Context(), identity(r))
	if err != nil {
		resp.RespondError(w, r, chat.ToCustomError(err))
		return user.NoPartner, false
	}

	if !u.IsPaired() {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotInSession))
		return user.NoPartner, false
	}

	return u.ID, true
}

func storageError(err error) *errs.CustomError {
	if !errors.Is(err, storage.ErrNotConfigured) {
		logx.Error(err, "Attachment storage failed")
	}
	return errs.NewError(errs.ErrFileStorageFailed)
}
