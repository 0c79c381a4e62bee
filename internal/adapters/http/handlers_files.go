package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

func (rt *Router) uploadFile(w http.ResponseWriter, r *http.Request, owner string) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.options.MaxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if header.Size > rt.options.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("file exceeds %d bytes", rt.options.MaxUploadBytes),
		})
		return
	}

	record, err := rt.uploader.Upload(r.Context(), ports.UploadInput{
		OwnerID:   owner,
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
		Body:      file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, string(domain.KindForMediaType(record.MediaType)), record.Size)
	}

	w.Header().Set("Location", "/v1/files/"+record.ID)
	writeJSON(w, http.StatusAccepted, record)
}

func (rt *Router) listFiles(w http.ResponseWriter, r *http.Request, owner string) {
	files, err := rt.files.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (rt *Router) getFile(w http.ResponseWriter, r *http.Request, owner string) {
	file, err := rt.files.Get(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (rt *Router) getThumbnail(w http.ResponseWriter, r *http.Request, owner string) {
	data, err := rt.files.Thumbnail(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) deleteFile(w http.ResponseWriter, r *http.Request, owner string) {
	if err := rt.files.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) processingStatus(w http.ResponseWriter, _ *http.Request, _ string) {
	if rt.status == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "processing runs in a separate worker"})
		return
	}
	writeJSON(w, http.StatusOK, rt.status.Status())
}
