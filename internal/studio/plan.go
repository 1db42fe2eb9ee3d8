package studio

import "github.com/fpang/luxstudio/internal/chat"

// Tier is the image model variant chosen for a generation.
type Tier string

const (
	// TierFast accepts an image as conditioning input and a restricted ratio set.
	TierFast Tier = "fast"
	// TierPremium is text-only and honours any ratio and the 2K/4K sizes.
	TierPremium Tier = "premium"
)

// fastTierRatios are the only ratios the fast tier accepts.
var fastTierRatios = map[AspectRatio]bool{
	Ratio1x1:  true,
	Ratio3x4:  true,
	Ratio4x3:  true,
	Ratio9x16: true,
	Ratio16x9: true,
}

// SelectTier picks the premium tier only for unconditioned 2K/4K requests.
func SelectTier(hasReference bool, size ImageSize) Tier {
	if !hasReference && size.Premium() {
		return TierPremium
	}
	return TierFast
}

// NormalizeFastRatio maps r onto the fast tier's supported set. Supported
// ratios map to themselves.
func NormalizeFastRatio(r AspectRatio) AspectRatio {
	if fastTierRatios[r] {
		return r
	}
	switch r {
	case Ratio21x9:
		return Ratio16x9
	case Ratio2x3:
		return Ratio3x4
	case Ratio3x2:
		return Ratio4x3
	default:
		return Ratio1x1
	}
}

// VideoRatio resolves r to one of the two ratios the video model produces.
func VideoRatio(r AspectRatio) AspectRatio {
	if r == Ratio9x16 || r == Ratio3x4 {
		return Ratio9x16
	}
	return Ratio16x9
}

// ImagePlan is the request plan for one Generate call. It is computed fresh
// for every execution and never stored.
type ImagePlan struct {
	Tier        Tier
	Model       string
	AspectRatio AspectRatio
	// ImageSize is only sent to the premium tier.
	ImageSize    ImageSize
	HasReference bool
	// Angles holds one entry per gateway call, in execution order.
	Angles []Angle
}

// Batch reports whether the plan runs the multi-angle photoshoot.
func (p ImagePlan) Batch() bool {
	return len(p.Angles) > 1
}

// PlanGenerate computes the request plan for a Generate call.
func PlanGenerate(models chat.Models, ratio AspectRatio, size ImageSize, hasReference bool) ImagePlan {
	tier := SelectTier(hasReference, size)
	plan := ImagePlan{
		Tier:         tier,
		HasReference: hasReference,
	}

	if tier == TierPremium {
		plan.Model = models.ProImage
		plan.AspectRatio = ratio
		plan.ImageSize = size
	} else {
		plan.Model = models.FastImage
		plan.AspectRatio = NormalizeFastRatio(ratio)
	}

	if hasReference || tier == TierFast {
		plan.Angles = PhotoshootAngles
	} else {
		plan.Angles = []Angle{{Name: "single", Prompt: SingleShotAngle}}
	}
	return plan
}

// prompt renders the text part for one angle of the plan.
func (p ImagePlan) prompt(userPrompt string, angle Angle) string {
	switch {
	case p.Tier == TierPremium:
		return premiumPrompt(userPrompt, angle.Prompt)
	case p.HasReference:
		return identityPrompt(userPrompt, angle.Prompt)
	default:
		return fastPrompt(userPrompt, angle.Prompt)
	}
}
