package cluster

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestContainersParsesAccounts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/containers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"stack_name": "blog", "account": "01ABC", "image": "nginx"},
			{"stack_name": "wiki", "account": 42}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	containers, err := c.Containers(context.Background())
	require.NoError(t, err)
	require.Len(t, containers, 2)

	require.Equal(t, "blog", containers[0].StackName())
	require.Equal(t, "01ABC", containers[0].Account())
	require.Equal(t, "nginx", containers[0]["image"])

	// Numeric accounts stringify.
	require.Equal(t, "42", containers[1].Account())
}

func TestErrorKeyBecomesTypedError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"error": "no space left"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.Deploy(context.Background(), "wordpress", DeployRequest{})

	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "no space left", ce.Message)
	require.Equal(t, "deploy", ce.Op)
}

func TestNon2xxBecomesTypedError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.Stats(context.Background())

	var ce *Error
	require.ErrorAs(t, err, &ce)
}

func TestUnreachableControllerBecomesTypedError(t *testing.T) {
	t.Parallel()

	c := NewClient("http://127.0.0.1:1", testLogger())
	_, err := c.Containers(context.Background())

	var ce *Error
	require.ErrorAs(t, err, &ce)
}

func TestTimeoutBecomesTypedError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(30 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Stats(ctx)
	var ce *Error
	require.ErrorAs(t, err, &ce)
}

func TestTemplatesUnwrapsList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/templates-list", r.URL.Path)
		_, _ = w.Write([]byte(`[{"templates": ["wordpress.yml", "ghost.yml"]}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	templates, err := c.Templates(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"wordpress.yml", "ghost.yml"}, templates)
}

func TestRemoveStackEscapesName(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		require.Equal(t, http.MethodDelete, r.Method)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	require.NoError(t, c.RemoveStack(context.Background(), "my stack"))
	require.Equal(t, "/stack/remove/my%20stack", gotPath)
}

func TestReadFileReturnsRawBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "config.yml", r.URL.Query().Get("filename"))
		_, _ = w.Write([]byte("key: value\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	content, err := c.ReadFile(context.Background(), "blog", "config.yml")
	require.NoError(t, err)
	require.Equal(t, "key: value\n", content)
}

func TestCreateFileEnsuresParentDir(t *testing.T) {
	t.Parallel()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.CreateFile(context.Background(), "blog", "conf/extra/site.conf")
	require.NoError(t, err)
	require.Equal(t, []string{"/files/blog/mkdir", "/files/blog/edit"}, paths)

	paths = nil
	_, err = c.CreateFile(context.Background(), "blog", "top-level.txt")
	require.NoError(t, err)
	require.Equal(t, []string{"/files/blog/edit"}, paths)
}
