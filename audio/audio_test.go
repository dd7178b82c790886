package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorts-pipeline/config"
)

func TestRunElevenLabsWritesOneFilePerScene(t *testing.T) {
	t.Parallel()

	var bodies []elevenLabsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		var body elevenLabsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		fmt.Fprint(w, "mp3-bytes")
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Audio.Engine = "elevenlabs"
	cfg.Audio.VoiceID = "voice-1"
	cfg.Audio.ModelID = "eleven_multilingual_v2"
	cfg.Keys.ElevenLabs = "el-key"

	g := New(cfg)
	g.baseURL = srv.URL

	outDir := filepath.Join(t.TempDir(), "audio")
	err := g.Run(context.Background(), []string{"first", "second", "third"}, outDir)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		assert.FileExists(t, filepath.Join(outDir, fmt.Sprintf("scene_%d.mp3", i)))
	}

	// neighboring narrations ride along so prosody flows across scenes
	require.Len(t, bodies, 3)
	assert.Empty(t, bodies[0].PreviousText)
	assert.Equal(t, "second", bodies[0].NextText)
	assert.Equal(t, "first", bodies[1].PreviousText)
	assert.Equal(t, "third", bodies[1].NextText)
	assert.Equal(t, "second", bodies[2].PreviousText)
	assert.Empty(t, bodies[2].NextText)
}

func TestRunElevenLabsRequiresKey(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Audio.Engine = "elevenlabs"

	err := New(cfg).Run(context.Background(), []string{"s"}, t.TempDir())
	assert.ErrorContains(t, err, "ELEVENLABS_API_KEY")
}

func TestRunElevenLabsAPIErrorAborts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Audio.Engine = "elevenlabs"
	cfg.Audio.VoiceID = "voice-1"
	cfg.Keys.ElevenLabs = "el-key"

	g := New(cfg)
	g.baseURL = srv.URL

	err := g.Run(context.Background(), []string{"s"}, t.TempDir())
	assert.ErrorContains(t, err, "scene 1 synthesis")
	assert.ErrorContains(t, err, "429")
}

func TestCommandEngineUsesConfiguredBinary(t *testing.T) {
	t.Parallel()

	// a stand-in TTS binary that writes its --output argument
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-tts")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nwhile [ $# -gt 0 ]; do\n  if [ \"$1\" = \"--output\" ]; then printf mp3 > \"$2\"; fi\n  shift\ndone\n"), 0755))

	cfg := &config.Config{}
	cfg.Audio.Engine = "command"
	cfg.Audio.TTSCommand = script

	outDir := filepath.Join(dir, "audio")
	err := New(cfg).Run(context.Background(), []string{"hello"}, outDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "scene_1.mp3"))
}
