package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_Filesystem runs the relay flows against the filesystem backend.
func TestE2E_Filesystem(t *testing.T) {
	_, apiURL := newFakeRecordAPI(t)

	baseURL := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		APIURL:      apiURL,
		StoragePath: t.TempDir(),
	})

	runRelayTests(t, baseURL)
}

// TestE2E_UploadLimit checks the server-side upload cap.
func TestE2E_UploadLimit(t *testing.T) {
	_, apiURL := newFakeRecordAPI(t)

	baseURL := startServer(t, ServerConfig{
		Port:          getOpenPort(t),
		APIURL:        apiURL,
		StoragePath:   t.TempDir(),
		MaxUploadSize: 1024,
	})

	resp := postUser(t, baseURL, "big@example.com", &upload{
		name:        "big.png",
		contentType: "image/png",
		content:     bytes.Repeat([]byte{0x89}, 4096),
	})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

type upload struct {
	name        string
	contentType string
	content     []byte
}

var noRedirect = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func postUser(t *testing.T, baseURL, email string, img *upload) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", "Ada Lovelace"},
		{"email", email},
		{"institution", "Analytical Society"},
		{"position", "Mathematician"},
		{"phone", "555-0100"},
	}
	for _, f := range fields {
		require.NoError(t, mw.WriteField(f[0], f[1]))
	}
	if img != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+img.name+`"`)
		h.Set("Content-Type", img.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(img.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/users", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := noRedirect.Do(req)
	require.NoError(t, err)
	return resp
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

// runRelayTests contains the backend-independent flow.
func runRelayTests(t *testing.T, baseURL string) {
	t.Helper()

	png := []byte("\x89PNG\r\n\x1a\nfake-image")

	t.Run("listing starts empty", func(t *testing.T) {
		status, body := do(t, http.MethodGet, baseURL+"/", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "No users yet.")
	})

	t.Run("create with image redirects to listing", func(t *testing.T) {
		resp := postUser(t, baseURL, "ada@example.com", &upload{name: "ada photo.png", contentType: "image/png", content: png})
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	})

	t.Run("listing shows the record and its image route", func(t *testing.T) {
		status, body := do(t, http.MethodGet, baseURL+"/", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "ada@example.com")
		assert.Contains(t, body, `src="/images/ada%20photo.png"`)
	})

	t.Run("image is served with its content type", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/images/ada%20photo.png")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, png, data)
	})

	t.Run("missing image is a plain 404", func(t *testing.T) {
		status, body := do(t, http.MethodGet, baseURL+"/images/nobody.png", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.True(t, strings.HasPrefix(body, "Error fetching image: "), body)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		resp := postUser(t, baseURL, "ada@example.com", nil)
		defer func() { _ = resp.Body.Close() }()

		var out map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Email already exists", out["error"])
	})

	t.Run("create without image", func(t *testing.T) {
		resp := postUser(t, baseURL, "grace@example.com", nil)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})

	t.Run("get passes the record through", func(t *testing.T) {
		status, body := do(t, http.MethodGet, baseURL+"/users/2", "")
		assert.Equal(t, http.StatusOK, status)

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &rec))
		assert.Equal(t, "grace@example.com", rec["email"])
		assert.Equal(t, "", rec["image_url"])
	})

	t.Run("get unknown id passes the upstream 404 through", func(t *testing.T) {
		status, body := do(t, http.MethodGet, baseURL+"/users/99", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"message":"User not found"}`, body)
	})

	t.Run("update wraps the upstream record", func(t *testing.T) {
		status, body := do(t, http.MethodPatch, baseURL+"/users/2", `{"position":"Rear Admiral"}`)
		assert.Equal(t, http.StatusOK, status)

		var out struct {
			Message string         `json:"message"`
			Data    map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, "User updated successfully", out.Message)
		assert.Equal(t, "Rear Admiral", out.Data["position"])
	})

	t.Run("update failure reports the upstream status", func(t *testing.T) {
		status, body := do(t, http.MethodPut, baseURL+"/users/99", `{"position":"x"}`)
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"error":"Failed to update user"}`, body)
	})

	t.Run("delete maps 204 to a message", func(t *testing.T) {
		status, body := do(t, http.MethodDelete, baseURL+"/users/2", "")
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"message":"User deleted successfully"}`, body)
	})

	t.Run("legacy delete path", func(t *testing.T) {
		status, _ := do(t, http.MethodDelete, baseURL+"/users/1/delete", "")
		assert.Equal(t, http.StatusOK, status)

		_, body := do(t, http.MethodGet, baseURL+"/", "")
		assert.Contains(t, body, "No users yet.")
	})

	t.Run("non-numeric id is not routed", func(t *testing.T) {
		status, _ := do(t, http.MethodGet, baseURL+"/users/abc", "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		status, body := do(t, http.MethodGet, baseURL+"/metrics", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "mediarelay_http_requests_total")
	})
}
