package domain

// GenerationParams is the normalized parameter set handed to workers. Image
// and video jobs share the struct; Duration and FPS are only meaningful for
// video, AdapterPath is set when adapter weights were staged for the task.
type GenerationParams struct {
	Prompt        string   `json:"prompt"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Steps         int      `json:"steps"`
	GuidanceScale float64  `json:"guidance_scale"`
	Seed          *int64   `json:"seed,omitempty"`
	Duration      float64  `json:"duration,omitempty"`
	FPS           int      `json:"fps,omitempty"`
	AdapterPath   string   `json:"adapter_path,omitempty"`
	Kind          TaskKind `json:"kind"`
}
