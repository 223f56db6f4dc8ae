// internal/app/features/attachments/handler.go
package attachments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/policy/casepolicy"
	attachstore "github.com/clarityhealth/claritymdt/internal/app/store/attachments"
	casestore "github.com/clarityhealth/claritymdt/internal/app/store/cases"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/convert"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxUploadBytes caps a single case document at 32 MiB.
const maxUploadBytes = 32 << 20

// Handler serves case document attachments: upload, download, PDF
// preview, delete. Reads require case visibility; writes require a case
// manager role.
type Handler struct {
	Cases       *casestore.Store
	Attachments *attachstore.Store
	Storage     storage.Store
	Converter   *convert.Converter
	Log         *zap.Logger
	AuditLog    *auditlog.Logger
}

func NewHandler(cases *casestore.Store, attachments *attachstore.Store, store storage.Store, converter *convert.Converter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Cases:       cases,
		Attachments: attachments,
		Storage:     store,
		Converter:   converter,
		Log:         logger,
		AuditLog:    audit,
	}
}

type attachmentResponse struct {
	models.Attachment
	PDFAvailable bool `json:"pdf_available"`
}

func toResponse(a models.Attachment) attachmentResponse {
	return attachmentResponse{Attachment: a, PDFAvailable: convert.IsConvertible(a.FileName)}
}

// ServeList handles GET /api/cases/{id}/attachments.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAuth(w, r); !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	if !casepolicy.CanView(r, cs) {
		httpjson.Forbidden(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Attachments.ListByCase(ctx, cs.ID)
	if err != nil {
		h.Log.Error("list attachments failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	out := make([]attachmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	httpjson.Write(w, http.StatusOK, out)
}

// ServeUpload handles POST /api/cases/{id}/attachments (multipart form,
// field name "file").
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage attachments")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpjson.BadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil || header == nil || header.Size == 0 {
		httpjson.BadRequest(w, "a non-empty \"file\" part is required")
		return
	}
	defer file.Close()
	if header.Size > maxUploadBytes {
		httpjson.BadRequest(w, "file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	info, err := uploadFile(ctx, h.Storage, header.Filename, file, header.Size, contentType)
	if err != nil {
		h.Log.Error("file upload failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	created, err := h.Attachments.Create(ctx, models.Attachment{
		CaseID:      cs.ID,
		FilePath:    info.Path,
		FileName:    info.FileName,
		Size:        info.Size,
		ContentType: info.ContentType,
		UploadedBy:  g.UserID,
	})
	if err != nil {
		// Orphaned object; best effort cleanup so storage doesn't leak.
		if delErr := h.Storage.Delete(ctx, info.Path); delErr != nil {
			h.Log.Warn("orphaned upload not cleaned up",
				zap.String("path", info.Path), zap.Error(delErr))
		}
		h.Log.Error("create attachment record failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	h.AuditLog.AttachmentUploaded(ctx, r, g.UserID, cs.ID, created.FileName)
	httpjson.Write(w, http.StatusCreated, toResponse(created))
}

// ServeDownload handles GET /api/cases/{id}/attachments/{attID}. Local
// storage serves the file directly; remote storage redirects to a
// short-lived presigned URL.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAuth(w, r); !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	if !casepolicy.CanView(r, cs) {
		httpjson.Forbidden(w, "")
		return
	}
	att, ok := h.loadAttachment(w, r, cs.ID)
	if !ok {
		return
	}

	filename := att.FileName
	if filename == "" {
		filename = "download"
	}
	contentDisposition := "attachment; filename=\"" + filename + "\""

	// Downloads must not be cached: files can be replaced.
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	if local, ok := h.Storage.(*storage.Local); ok {
		fullPath, err := local.GetFullPath(att.FilePath)
		if err != nil {
			h.Log.Error("resolve attachment path failed",
				zap.String("path", att.FilePath), zap.Error(err))
			httpjson.Internal(w)
			return
		}
		w.Header().Set("Content-Disposition", contentDisposition)
		http.ServeFile(w, r, fullPath)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	signedURL, err := h.Storage.PresignedURL(ctx, att.FilePath, &storage.PresignOptions{
		Expires:            15 * time.Minute,
		ContentDisposition: contentDisposition,
	})
	if err != nil {
		h.Log.Error("presign attachment failed",
			zap.String("path", att.FilePath), zap.Error(err))
		httpjson.Internal(w)
		return
	}
	http.Redirect(w, r, signedURL, http.StatusSeeOther)
}

// ServePDF handles GET /api/cases/{id}/attachments/{attID}/pdf. Office
// documents are converted on first request and the rendition is cached.
func (h *Handler) ServePDF(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAuth(w, r); !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	if !casepolicy.CanView(r, cs) {
		httpjson.Forbidden(w, "")
		return
	}
	att, ok := h.loadAttachment(w, r, cs.ID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	pdfKey, err := h.Converter.EnsurePDF(ctx, att.FilePath)
	if err != nil {
		switch {
		case errors.Is(err, convert.ErrUnconvertible):
			httpjson.BadRequest(w, "this file type has no pdf preview")
		case errors.Is(err, convert.ErrUnsupportedStorage):
			// No preview for remote storage; the client downloads instead.
			httpjson.NotFound(w, "pdf preview not available")
		case errors.Is(err, convert.ErrSourceMissing):
			httpjson.NotFound(w, "attachment file is missing from storage")
		default:
			h.Log.Error("pdf conversion failed",
				zap.String("attachment_id", att.ID.Hex()), zap.Error(err))
			httpjson.Internal(w)
		}
		return
	}

	if pdfKey != att.FilePath && pdfKey != att.PDFPath {
		if err := h.Attachments.SetPDFPath(ctx, att.ID, pdfKey); err != nil {
			h.Log.Warn("record pdf path failed",
				zap.String("attachment_id", att.ID.Hex()), zap.Error(err))
		}
	}

	local, ok2 := h.Storage.(*storage.Local)
	if !ok2 {
		httpjson.NotFound(w, "pdf preview not available")
		return
	}
	fullPath, err := local.GetFullPath(pdfKey)
	if err != nil {
		h.Log.Error("resolve pdf path failed", zap.String("path", pdfKey), zap.Error(err))
		httpjson.Internal(w)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=\"preview.pdf\"")
	http.ServeFile(w, r, fullPath)
}

// ServeDelete handles DELETE /api/cases/{id}/attachments/{attID}. The
// record goes first; storage objects are cleaned up best effort.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage attachments")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	att, ok := h.loadAttachment(w, r, cs.ID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Attachments.Delete(ctx, att.ID); err != nil {
		if errors.Is(err, attachstore.ErrNotFound) {
			httpjson.NotFound(w, "attachment not found")
			return
		}
		h.Log.Error("delete attachment failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	if err := h.Storage.Delete(ctx, att.FilePath); err != nil {
		h.Log.Warn("delete attachment object failed",
			zap.String("path", att.FilePath), zap.Error(err))
	}
	if att.PDFPath != "" {
		if err := h.Storage.Delete(ctx, att.PDFPath); err != nil {
			h.Log.Warn("delete pdf rendition failed",
				zap.String("path", att.PDFPath), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadCase(w http.ResponseWriter, r *http.Request) (*models.Case, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid case id")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cs, err := h.Cases.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, casestore.ErrNotFound) {
			httpjson.NotFound(w, "case not found")
			return nil, false
		}
		h.Log.Error("get case failed", zap.Error(err))
		httpjson.Internal(w)
		return nil, false
	}
	return cs, true
}

// loadAttachment resolves {attID} and verifies it belongs to the case in
// the path, so attachment ids can't be reached through the wrong case.
func (h *Handler) loadAttachment(w http.ResponseWriter, r *http.Request, caseID primitive.ObjectID) (*models.Attachment, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "attID"))
	if err != nil {
		httpjson.BadRequest(w, "invalid attachment id")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	att, err := h.Attachments.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, attachstore.ErrNotFound) {
			httpjson.NotFound(w, "attachment not found")
			return nil, false
		}
		h.Log.Error("get attachment failed", zap.Error(err))
		httpjson.Internal(w)
		return nil, false
	}
	if att.CaseID != caseID {
		httpjson.NotFound(w, "attachment not found")
		return nil, false
	}
	return att, true
}
