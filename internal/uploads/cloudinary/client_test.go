package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		CloudName: "testcloud",
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   server.URL,
	})
	return client, server
}

func TestClientUpload(t *testing.T) {
	var gotPath string
	var gotFields map[string]string
	var gotFile []byte

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(10<<20))

		gotFields = make(map[string]string)
		for name, values := range r.MultipartForm.Value {
			gotFields[name] = values[0]
		}

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotFile = buf[:n]

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.example.com/stored.jpg",
			"public_id":  gotFields["public_id"],
		})
	})

	result, err := client.Upload(context.Background(), "crash.jpg", strings.NewReader("image-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "/v1_1/testcloud/image/upload", gotPath)
	assert.Equal(t, []byte("image-bytes"), gotFile)
	assert.Equal(t, "https://res.example.com/stored.jpg", result.URL)

	assert.Equal(t, "key", gotFields["api_key"])
	assert.Equal(t, "vehicle-incidents", gotFields["folder"])
	assert.True(t, strings.HasPrefix(gotFields["public_id"], "vehicle-incidents/"))
	assert.True(t, strings.HasSuffix(gotFields["public_id"], "_crash"))

	// Signature covers the sorted params plus the secret.
	toSign := "folder=" + gotFields["folder"] +
		"&public_id=" + gotFields["public_id"] +
		"&timestamp=" + gotFields["timestamp"] + "secret"
	sum := sha1.Sum([]byte(toSign))
	assert.Equal(t, hex.EncodeToString(sum[:]), gotFields["signature"])
}

func TestClientUploadNotConfigured(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.Upload(context.Background(), "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientUploadProviderError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	_, err := client.Upload(context.Background(), "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
