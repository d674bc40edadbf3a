package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"creatorpack/internal/ingest"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/services"
)

const (
	maxJSONBody         = 2 << 20
	multipartMemory     = 8 << 20
	multipartOverhead   = 1 << 20
	requestTooLargeText = "Upload exceeds the maximum request size"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, HealthResponse{Status: "ok"})
}

func (h *handler) daemonStatus(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, h.status(r.Context()))
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.serverError(w, r, "list jobs", err)
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	render.JSON(w, r, list)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if services.IsNotFound(err) {
			_ = render.Render(w, r, errNotFound(JobNotFoundMessage))
			return
		}
		h.serverError(w, r, "get job", err)
		return
	}
	render.JSON(w, r, job)
}

func (h *handler) getArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	exists, err := h.store.ArtifactExists(r.Context(), id, name)
	if err != nil && !services.IsNotFound(err) {
		h.serverError(w, r, "artifact exists", err)
		return
	}
	if !exists {
		_ = render.Render(w, r, errNotFound(ArtifactNotFoundMessage))
		return
	}

	content, err := h.store.ReadArtifact(r.Context(), id, name)
	if err != nil {
		if services.IsNotFound(err) {
			_ = render.Render(w, r, errNotFound(ArtifactNotFoundMessage))
			return
		}
		h.serverError(w, r, "read artifact", err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", artifactContentType(name))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("artifact stream interrupted",
			logging.String(logging.FieldJobID, id),
			logging.String("artifact", name),
			logging.Error(err),
		)
	}
}

func (h *handler) createUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			_ = render.Render(w, r, errBadRequest(requestTooLargeText))
		case errors.Is(err, http.ErrNotMultipart):
			_ = render.Render(w, r, errBadRequest(ingest.FileRequiredMessage))
		default:
			_ = render.Render(w, r, errBadRequest("Malformed upload: "+err.Error()))
		}
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = render.Render(w, r, errBadRequest(ingest.FileRequiredMessage))
		return
	}
	defer file.Close()

	job, err := h.ingest.CreateUpload(r.Context(), ingest.UploadRequest{
		OriginalName: header.Filename,
		Size:         header.Size,
		MimeType:     header.Header.Get("Content-Type"),
		Language:     r.FormValue("language"),
		PresetID:     r.FormValue("presetId"),
		Content:      file,
	})
	if err != nil {
		h.respondServiceError(w, r, "create upload", err)
		return
	}
	_ = render.Render(w, r, CreateJobResponse{JobID: job.ID})
}

func (h *handler) createYouTube(w http.ResponseWriter, r *http.Request) {
	var body YouTubeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := render.DecodeJSON(r.Body, &body); err != nil && !errors.Is(err, io.EOF) {
		_ = render.Render(w, r, errBadRequest("Malformed JSON body"))
		return
	}

	job, err := h.ingest.CreateYouTube(r.Context(), ingest.YouTubeRequest{
		URL:      body.URL,
		Language: body.Language,
		PresetID: body.PresetID,
	})
	if err != nil {
		h.respondServiceError(w, r, "create youtube", err)
		return
	}
	_ = render.Render(w, r, CreateJobResponse{JobID: job.ID})
}

func (h *handler) respondServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if errors.Is(err, services.ErrValidation) {
		_ = render.Render(w, r, errBadRequest(services.UserMessage(err)))
		return
	}
	h.serverError(w, r, operation, err)
}

func (h *handler) serverError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	logging.ErrorWithContext(logging.WithContext(r.Context(), h.logger), "request failed", "api_request_failed",
		logging.String("operation", operation),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	)
	_ = render.Render(w, r, errFromService(err, JobNotFoundMessage))
}

func artifactContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".srt":
		return "application/x-subrip"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
