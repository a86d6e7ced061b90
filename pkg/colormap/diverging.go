package colormap

import "math"

const (
	// achromaticSaturation is the saturation at or below which a color counts as gray.
	achromaticSaturation = 0.05
	// hueSpinThreshold is the hue distance (60°) beyond which two saturated
	// endpoints are joined through a neutral midpoint.
	hueSpinThreshold = 1.0472
	// minMidMagnitude keeps the neutral midpoint bright.
	minMidMagnitude = 88
)

// InterpolateLinear blends two colors channel by channel in sRGB and rounds
// to the nearest byte.
func InterpolateLinear(c1, c2 RGB8, t float64) RGB8 {
	mix := func(a, b uint8) uint8 {
		return clampByte((1-t)*float64(a) + t*float64(b))
	}
	return RGB8{mix(c1.R, c2.R), mix(c1.G, c2.G), mix(c1.B, c2.B)}
}

// InterpolateDiverging blends c1 and c2 in Msh space using the D65 white.
func InterpolateDiverging(c1, c2 RGB8, t float64) (RGB8, error) {
	return InterpolateDivergingWhite(c1, c2, t, D65)
}

// InterpolateDivergingWhite blends c1 and c2 in Msh space relative to white.
// Saturated endpoints more than 60° apart in hue pass through a bright gray
// at t = 0.5; when exactly one endpoint is gray its hue is borrowed from the
// other so the ramp does not jump in hue near the neutral end.
// The endpoints themselves are returned unchanged at t = 0 and t = 1.
func InterpolateDivergingWhite(c1, c2 RGB8, t float64, white WhitePoint) (RGB8, error) {
	msh1, err := RGBToMsh(c1, white)
	if err != nil {
		return RGB8{}, err
	}
	msh2, err := RGBToMsh(c2, white)
	if err != nil {
		return RGB8{}, err
	}
	if t <= 0 {
		return c1, nil
	}
	if t >= 1 {
		return c2, nil
	}

	if msh1.S > achromaticSaturation && msh2.S > achromaticSaturation &&
		math.Abs(msh1.H-msh2.H) > hueSpinThreshold {
		m := math.Max(math.Max(msh1.M, msh2.M), minMidMagnitude)
		if t < 0.5 {
			msh2 = Msh{M: m}
			t = 2 * t
		} else {
			msh1 = Msh{M: m}
			t = 2*t - 1
		}
	}

	switch {
	case msh1.S <= achromaticSaturation && msh2.S > achromaticSaturation:
		msh1.H = adjustHue(msh2, msh1.M)
	case msh1.S > achromaticSaturation && msh2.S <= achromaticSaturation:
		msh2.H = adjustHue(msh1, msh2.M)
	}

	mix := Msh{
		M: (1-t)*msh1.M + t*msh2.M,
		S: (1-t)*msh1.S + t*msh2.S,
		H: (1-t)*msh1.H + t*msh2.H,
	}
	return MshToRGB(mix, white), nil
}

// adjustHue returns the hue an unsaturated color of magnitude m should take
// when interpolated toward the saturated color sat.
func adjustHue(sat Msh, m float64) float64 {
	if sat.M >= m {
		return sat.H
	}
	spin := sat.S * math.Sqrt(m*m-sat.M*sat.M) / (sat.M * math.Sin(sat.S))
	if sat.H > -hueSpinThreshold {
		return sat.H + spin
	}
	return sat.H - spin
}
