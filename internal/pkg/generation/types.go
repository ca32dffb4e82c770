package generation

// Credit costs per costed operation.
const (
	CostImage = 1
	CostVideo = 4
)

// Defaults applied when the client omits optional knobs. They match the
// product's generator form defaults.
const (
	DefaultImageSize  = "landscape_4_3"
	DefaultSteps      = 4
	DefaultMovement   = 127
	DefaultSimilarity = 0.02
)

// GenerateRequest describes one image generation.
type GenerateRequest struct {
	Prompt    string `json:"prompt" validate:"required,min=1,max=2000"`
	ImageSize string `json:"image_size" validate:"omitempty,oneof=square_hd square portrait_4_3 portrait_16_9 landscape_4_3 landscape_16_9"`
	Steps     int    `json:"steps" validate:"omitempty,min=1,max=10"`
}

// AnimateRequest describes one animation of a previously generated image.
// Movement steers the motion amount, similarity the conditioning
// augmentation toward the source frame.
type AnimateRequest struct {
	ImageURL   string  `json:"image_url" validate:"omitempty,url"`
	Movement   int     `json:"movement" validate:"required,min=1,max=255"`
	Similarity float64 `json:"similarity" validate:"min=0,max=0.1"`
}

// ImageInput is the generation API wire shape for text-to-image requests.
type ImageInput struct {
	Prompt              string `json:"prompt"`
	ImageSize           string `json:"image_size"`
	NumInferenceSteps   int    `json:"num_inference_steps"`
	SyncMode            bool   `json:"sync_mode"`
	NumImages           int    `json:"num_images"`
	EnableSafetyChecker bool   `json:"enable_safety_checker"`
}

// VideoInput is the generation API wire shape for image-to-video requests.
type VideoInput struct {
	ImageURL            string  `json:"image_url"`
	MotionBucketID      int     `json:"motion_bucket_id"`
	CondAug             float64 `json:"cond_aug"`
	EnableSafetyChecker bool    `json:"enable_safety_checker"`
}

// ImageRef is a single generated image reference.
type ImageRef struct {
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
}

// ImageOutput is the generation API response for image requests.
type ImageOutput struct {
	Images []ImageRef `json:"images"`
}

// VideoOutput is the generation API response for video requests.
type VideoOutput struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}
