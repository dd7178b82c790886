package types

// TitleInfo holds the generated video title and hashtags
type TitleInfo struct {
	Title    string   `json:"title"`
	Hashtags []string `json:"hashtags"`
}

// RunState tracks the full state of one pipeline run
type RunState struct {
	RunID       string     `json:"run_id"`
	StartedAt   string     `json:"started_at"`
	CompletedAt string     `json:"completed_at"`
	Topic       string     `json:"topic"`
	Scenes      []string   `json:"scenes"`
	SearchTerms []string   `json:"search_terms"`
	TitleInfo   *TitleInfo `json:"title_info"`
	AudioDir    string     `json:"audio_dir"`
	VideoFile   string     `json:"video_file"`
	YouTubeURL  string     `json:"youtube_url,omitempty"`
	YouTubeID   string     `json:"youtube_id,omitempty"`
	Error       string     `json:"error,omitempty"`
}
