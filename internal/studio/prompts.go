package studio

import "fmt"

// CleanImageDirective is appended to every image-producing prompt. It keeps
// the models from painting editor chrome, viewfinders or watermarks into the
// photograph.
const CleanImageDirective = `
  CRITICAL VISUAL RESTRICTIONS (MANDATORY):
  1. NO UI ELEMENTS: The output must be a CLEAN PHOTOGRAPH. Do NOT render any User Interface (UI), buttons, icons, or software overlays.
  2. SPECIFIC BANNED ITEMS: 
     - NO 'Recortar', 'Crop', 'Edit', 'Phase One', 'Save', or 'Done' buttons.
     - NO pill-shaped buttons at the top/bottom (like in iOS/Android editors).
     - NO camera viewfinder overlays, crosshairs, or grids.
     - NO text, watermarks, subtitles, or timestamps.
  3. REALISM: The image must look like a developed raw file or a printed photo, NEVER like a screenshot of a phone screen or computer app.
  4. FAIL-SAFE: If the model 'wants' to add a crop button, it must suppress it and fill the area with the natural background of the photo.
`

// DefaultAnalysisPrompt is used when the user asks for an analysis without a prompt.
const DefaultAnalysisPrompt = "Act as a luxury image consultant and professional fashion photographer. " +
	"Analyze this photo. Suggest improvements to framing, lighting, wardrobe, makeup and setting " +
	"to make this image worthy of a haute couture magazine or a film."

// AnalysisSystemInstruction frames every analysis call.
const AnalysisSystemInstruction = "You are an expert in high-end visual aesthetics."

// AnalysisUnavailable is returned as the report when the model answers with no text.
const AnalysisUnavailable = "Could not analyze the image."

// TranscriptionInstruction accompanies dictation audio.
const TranscriptionInstruction = "Transcribe the audio exactly as spoken."

// SingleShotAngle is the style hint for the one-image premium generation.
const SingleShotAngle = "High quality professional photo."

// Angle is one fixed variation of a photoshoot batch.
type Angle struct {
	Name   string
	Prompt string
}

// PhotoshootAngles are generated in this order, one request at a time.
var PhotoshootAngles = []Angle{
	{
		Name:   "close-up",
		Prompt: "Variation 1: Close-up Portrait. Sharp focus on eyes. High texture.",
	},
	{
		Name:   "editorial",
		Prompt: "Variation 2: Fashion Editorial Shot (3/4 or Full Body). IMPORTANT: Face must be perfectly detailed and identical to reference, avoiding any distortion.",
	},
	{
		Name:   "environmental",
		Prompt: "Variation 3: Cinematic Environmental Shot. IMPORTANT: Even with the scenery, the subject's face must remain the sharpest and most detailed part of the image.",
	},
}

// editPrompt builds the instruction for a single-image edit.
func editPrompt(instruction string) string {
	return fmt.Sprintf("INSTRUCTION: %s. Maintain high-fidelity facial features, ensuring the face is not distorted even if the edit changes the environment. %s",
		instruction, CleanImageDirective)
}

// premiumPrompt builds the text-only prompt for the premium tier.
func premiumPrompt(prompt, angle string) string {
	return prompt + " " + angle + " " + CleanImageDirective
}

// fastPrompt builds the unconditioned fast-tier prompt.
func fastPrompt(prompt, angle string) string {
	return fmt.Sprintf("%s %s. Photorealistic. %s", prompt, angle, CleanImageDirective)
}

// identityPrompt builds the fast-tier prompt used with a reference image.
// Facial detail must survive wide and full-body framings.
func identityPrompt(prompt, angle string) string {
	return fmt.Sprintf(`
          ROLE: World-class high-end portrait photographer.

          CORE INSTRUCTION: Re-imagine the input image based on the user request, but maintain the subject's identity perfectly.

          CRITICAL PRIORITY: FACIAL FIDELITY AT DISTANCE.
          - When generating full-body or environmental shots, the face usually loses detail. YOU MUST PREVENT THIS.
          - The face must remain CRYSTAL CLEAR, high-resolution, and perfectly recognizable as the reference person, regardless of the camera distance.
          - Do not allow the face to become "smudged", "melted", or generic in wide shots.

          USER REQUEST: %s
          SPECIFIC ANGLE/STYLE: %s

          %s

          ADDITIONAL QUALITY RULES:
          - Skin texture must be visible (pores, natural imperfections).
          - Lighting must be physical and realistic (Raytraced look).
          - NO "AI Plastic" look.
        `, prompt, angle, CleanImageDirective)
}
