package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pexelsSearchJSON = `{
  "videos": [
    {
      "id": 101,
      "duration": 12,
      "video_files": [
        {"link": "URL/files/sd.mp4", "width": 640, "height": 360},
        {"link": "URL/files/hd.mp4", "width": 1920, "height": 1080},
        {"link": "URL/files/720.mp4", "width": 1280, "height": 720}
      ]
    },
    {
      "id": 102,
      "duration": 3,
      "video_files": [{"link": "URL/files/short.mp4", "width": 1920, "height": 1080}]
    },
    {
      "id": 103,
      "duration": 9,
      "video_files": []
    }
  ]
}`

func newPexelsTestServer(t *testing.T) (*httptest.Server, *Pexels) {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "ocean waves", r.URL.Query().Get("query"))
		body := []byte(pexelsSearchJSON)
		w.Write(replaceURL(body, srv.URL))
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewPexels("test-key", 10)
	p.baseURL = srv.URL
	return srv, p
}

func replaceURL(body []byte, base string) []byte {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); {
		if i+3 <= len(body) && string(body[i:i+3]) == "URL" {
			out = append(out, base...)
			i += 3
			continue
		}
		out = append(out, body[i])
		i++
	}
	return out
}

func TestPexelsSearchPicksGreatestPixelAreaRendition(t *testing.T) {
	t.Parallel()

	srv, p := newPexelsTestServer(t)

	hits, err := p.Search(context.Background(), "ocean waves", 5.0)
	require.NoError(t, err)

	// 102 is under the duration floor, 103 has no renditions
	require.Len(t, hits, 1)
	assert.Equal(t, "101", hits[0].ID)
	assert.Equal(t, 12.0, hits[0].Duration)
	assert.Equal(t, srv.URL+"/files/hd.mp4", hits[0].URL)
	assert.Equal(t, 1920, hits[0].Width)
	assert.Equal(t, 1080, hits[0].Height)
}

func TestPexelsDownloadWritesFile(t *testing.T) {
	t.Parallel()

	srv, p := newPexelsTestServer(t)

	dest := filepath.Join(t.TempDir(), "scene_1_raw.mp4")
	err := p.Download(context.Background(), Candidate{ID: "101", URL: srv.URL + "/files/hd.mp4"}, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestPexelsSearchErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	p := NewPexels("test-key", 10)
	p.baseURL = srv.URL

	_, err := p.Search(context.Background(), "ocean", 0)
	assert.Error(t, err)
}
