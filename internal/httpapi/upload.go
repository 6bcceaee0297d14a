package httpapi

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/MalithGihan/sitehost-service/internal/ingest"
	"github.com/MalithGihan/sitehost-service/internal/sanitize"
	"github.com/MalithGihan/sitehost-service/pkg/types"
)

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUploadFolder(w http.ResponseWriter, r *http.Request) {
	s.handleUploadWith(w, r, ingest.Folder)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.handleUploadWith(w, r, ingest.File)
}

func (s *Server) handleUploadWith(w http.ResponseWriter, r *http.Request, classify func(*multipart.Form) (types.Upload, error)) {
	if s.config.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBytes)
	}
	form, err := s.parseForm(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Upload exceeds size limit."})
			return
		}
		s.logger.Warn("invalid upload request", zap.Error(err))
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No files were uploaded."})
		return
	}
	if form != nil {
		defer form.RemoveAll()
	}

	up, err := classify(form)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No files were uploaded."})
		return
	}

	res, err := s.publisher.Publish(r.Context(), up)
	switch {
	case errors.Is(err, sanitize.ErrEmptyProjectName):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Could not derive a project name from the upload."})
		return
	case err != nil:
		s.logger.Error("upload error",
			zap.String("kind", string(up.Kind)),
			zap.String("project", res.Project.Name),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error processing upload: " + err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Message: "Project uploaded successfully",
		URL:     res.Project.URL,
	})
}

// parseForm returns a nil form for non-multipart bodies so they are
// reported as "no files".
func (s *Server) parseForm(r *http.Request) (*multipart.Form, error) {
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return r.MultipartForm, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}
