package chat

import "os"

// Gemini/Veo model IDs used by the studio.
//
// | Role                | API Model ID                    | Notes                               |
// |---------------------|---------------------------------|-------------------------------------|
// | Image analysis      | gemini-3-pro-preview            | text out, single image in           |
// | Fast image tier     | gemini-2.5-flash-image          | accepts image conditioning          |
// | Premium image tier  | gemini-3-pro-image-preview      | text-only input, 2K/4K output       |
// | Video               | veo-3.1-fast-generate-preview   | long-running operation, 16:9 / 9:16 |
// | Transcription       | gemini-2.5-flash                | audio in, text out                  |
// | Key validation      | gemini-3-flash-preview          | cheap "hi" round trip               |
const (
	// ModelGemini3ProPreview is used for image analysis (consultant reports).
	ModelGemini3ProPreview = "gemini-3-pro-preview"

	// ModelGemini25FlashImage is the fast image tier ("Nano Banana").
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is the premium text-to-image tier.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelVeo31FastPreview generates 1080p clips.
	ModelVeo31FastPreview = "veo-3.1-fast-generate-preview"

	// ModelGemini25Flash is stable, balanced performance; used for dictation.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini3FlashPreview is free-tier compatible and used for key validation.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
)

// Models names the model variant used for each gateway capability.
type Models struct {
	Analyze    string
	FastImage  string
	ProImage   string
	Video      string
	Transcribe string
}

// DefaultModels returns the production model selection.
func DefaultModels() Models {
	return Models{
		Analyze:    ModelGemini3ProPreview,
		FastImage:  ModelGemini25FlashImage,
		ProImage:   ModelGemini3ProImage,
		Video:      ModelVeo31FastPreview,
		Transcribe: ModelGemini25Flash,
	}
}

// ModelsFromEnv returns DefaultModels with per-capability overrides from:
//   - LUXSTUDIO_MODEL_ANALYZE
//   - LUXSTUDIO_MODEL_FAST_IMAGE
//   - LUXSTUDIO_MODEL_PRO_IMAGE
//   - LUXSTUDIO_MODEL_VIDEO
//   - LUXSTUDIO_MODEL_TRANSCRIBE
func ModelsFromEnv() Models {
	m := DefaultModels()
	override(&m.Analyze, "LUXSTUDIO_MODEL_ANALYZE")
	override(&m.FastImage, "LUXSTUDIO_MODEL_FAST_IMAGE")
	override(&m.ProImage, "LUXSTUDIO_MODEL_PRO_IMAGE")
	override(&m.Video, "LUXSTUDIO_MODEL_VIDEO")
	override(&m.Transcribe, "LUXSTUDIO_MODEL_TRANSCRIBE")
	return m
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
