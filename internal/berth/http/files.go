package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/pkg/httpx"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing; larger
// parts spill to temp files.
const maxUploadMemory = 32 << 20

// FilesHandler is the passthrough for the controller's per-stack file
// manager. Every operation requires ownership of the stack.
type FilesHandler struct {
	DeployService *service.DeployService
	Cluster       *cluster.Client
}

// authorize resolves the authenticated user and checks stack ownership. On
// failure it writes the response and returns an empty stack name.
func (h *FilesHandler) authorize(w http.ResponseWriter, r *http.Request) string {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return ""
	}

	stack := r.PathValue("stack")
	if stack == "" {
		httpx.WriteError(w, http.StatusBadRequest, "stack name is required")
		return ""
	}

	owns, err := h.DeployService.OwnsStack(r.Context(), user, stack)
	if err != nil {
		writeServiceError(w, r, err)
		return ""
	}
	if !owns {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return ""
	}
	return stack
}

// HandleList handles GET /v1/files/{stack}.
func (h *FilesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	listing, err := h.Cluster.ListFiles(r.Context(), stack)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listing)
}

// HandleRead handles GET /v1/files/{stack}/read?path=...
func (h *FilesHandler) HandleRead(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		httpx.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	content, err := h.Cluster.ReadFile(r.Context(), stack, path)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"content": content})
}

type editFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// HandleEdit handles POST /v1/files/{stack}/edit.
func (h *FilesHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	var req editFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		httpx.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	result, err := h.Cluster.EditFile(r.Context(), stack, req.Path, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

type createFileRequest struct {
	Path string `json:"path"`
}

// HandleCreate handles POST /v1/files/{stack}/create. Parent directories are
// created as needed before the empty file is written.
func (h *FilesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	var req createFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		httpx.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	result, err := h.Cluster.CreateFile(r.Context(), stack, req.Path)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, result)
}

type mkdirRequest struct {
	Path string `json:"path"`
}

// HandleMkdir handles POST /v1/files/{stack}/mkdir.
func (h *FilesHandler) HandleMkdir(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	var req mkdirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		httpx.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	result, err := h.Cluster.Mkdir(r.Context(), stack, req.Path)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, result)
}

// HandleManage handles POST /v1/files/{stack}/manage. The body (rename,
// delete and similar file-manager verbs) is forwarded opaquely; the
// controller owns that contract.
func (h *FilesHandler) HandleManage(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	result, err := h.Cluster.ManageFile(r.Context(), stack, body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleUpload handles POST /v1/files/{stack}/upload. Single multipart file
// under the "file" field.
func (h *FilesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	result, err := h.Cluster.UploadFile(r.Context(), stack,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, result)
}

// HandleUploadBulk handles POST /v1/files/{stack}/upload-bulk. Each part
// under the "files" field is forwarded in turn; the response reports results
// per filename.
func (h *FilesHandler) HandleUploadBulk(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "files field is required")
		return
	}

	results := make(map[string]string, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			results[header.Filename] = "error: " + err.Error()
			continue
		}
		_, err = h.Cluster.UploadFile(r.Context(), stack,
			header.Filename, header.Header.Get("Content-Type"), file)
		file.Close()
		if err != nil {
			results[header.Filename] = "error: " + err.Error()
			continue
		}
		results[header.Filename] = "ok"
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

// HandleUploadZip handles POST /v1/files/{stack}/upload-zip. The archive is
// forwarded whole; the controller extracts it server-side.
func (h *FilesHandler) HandleUploadZip(w http.ResponseWriter, r *http.Request) {
	stack := h.authorize(w, r)
	if stack == "" {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	result, err := h.Cluster.UploadArchive(r.Context(), stack,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, result)
}
