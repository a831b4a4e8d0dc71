package light

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture. Scenes use this as their initial value but can override it
// via the scene WithShadowSettings builder option.
const ShadowMapResolution = 2048

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001


// ShadowSettings configures the shadow map a scene renders from its light.
type ShadowSettings struct {
	Resolution int
	Bias       float32
}

// DefaultShadowSettings returns a ShadowMapResolution map with DefaultShadowBias.
func DefaultShadowSettings() ShadowSettings {
	return ShadowSettings{Resolution: ShadowMapResolution, Bias: DefaultShadowBias}
}

// TexelSize returns the size of one shadow map texel in UV units, or zero for an empty map.
func (s ShadowSettings) TexelSize() float32 {
	if s.Resolution <= 0 {
		return 0
	}
	return 1 / float32(s.Resolution)
}
