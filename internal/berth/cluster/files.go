package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// ListFiles returns the file tree of a stack's data directory.
func (c *Client) ListFiles(ctx context.Context, stack string) (json.RawMessage, error) {
	return c.call(ctx, "files-list", http.MethodGet,
		"/files/"+url.PathEscape(stack)+"/list", nil, readTimeout)
}

// ReadFile streams a file's raw contents. This is the one non-JSON endpoint
// the controller exposes; the body is returned verbatim.
func (c *Client) ReadFile(ctx context.Context, stack, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/files/%s/read?filename=%s",
		c.baseURL, url.PathEscape(stack), url.QueryEscape(filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &Error{Op: "files-read", Message: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "files-read", Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Op: "files-read", Message: err.Error()}
	}
	if resp.StatusCode >= 400 {
		return "", &Error{Op: "files-read", Message: resp.Status}
	}
	return string(raw), nil
}

// EditFile writes content to a file, creating it when absent.
func (c *Client) EditFile(ctx context.Context, stack, filename, content string) (json.RawMessage, error) {
	body := map[string]string{"filename": filename, "content": content}
	return c.call(ctx, "files-edit", http.MethodPost,
		"/files/"+url.PathEscape(stack)+"/edit", body, mutateTimeout)
}

// Mkdir ensures a directory exists inside the stack's data directory.
func (c *Client) Mkdir(ctx context.Context, stack, path string) (json.RawMessage, error) {
	body := map[string]string{"path": path}
	return c.call(ctx, "files-mkdir", http.MethodPost,
		"/files/"+url.PathEscape(stack)+"/mkdir", body, mutateTimeout)
}

// CreateFile creates an empty file, first ensuring any parent directory in
// the name exists.
func (c *Client) CreateFile(ctx context.Context, stack, filename string) (json.RawMessage, error) {
	if idx := strings.LastIndex(filename, "/"); idx > 0 {
		if _, err := c.Mkdir(ctx, stack, filename[:idx]); err != nil {
			return nil, err
		}
	}
	return c.EditFile(ctx, stack, filename, "")
}

// ManageFile forwards a rename or delete action.
func (c *Client) ManageFile(ctx context.Context, stack string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, "files-manage", http.MethodPost,
		"/files/"+url.PathEscape(stack)+"/manage", body, mutateTimeout)
}

// UploadFile forwards a single file as multipart form data.
func (c *Client) UploadFile(ctx context.Context, stack, filename, contentType string, file io.Reader) (json.RawMessage, error) {
	return c.uploadMultipart(ctx, "files-upload",
		"/files/"+url.PathEscape(stack)+"/upload", filename, contentType, file)
}

// UploadArchive forwards a zip archive to the controller's bulk endpoint,
// which unpacks it server-side.
func (c *Client) UploadArchive(ctx context.Context, stack, filename, contentType string, file io.Reader) (json.RawMessage, error) {
	return c.uploadMultipart(ctx, "files-bulk-upload",
		"/files/"+url.PathEscape(stack)+"/bulk-upload", filename, contentType, file)
}

func (c *Client) uploadMultipart(ctx context.Context, op, path, filename, contentType string, file io.Reader) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, pr)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}
	if msg := errorMessage(raw); msg != "" {
		return nil, &Error{Op: op, Message: msg}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{Op: op, Message: resp.Status}
	}
	return raw, nil
}
