package colormap

import (
	"fmt"
	"math"
	"strings"
)

// degenerateMagnitude is the Lab magnitude below which hue and saturation are undefined.
const degenerateMagnitude = 1e-9

// RGB8 is an sRGB color with 8-bit channels.
type RGB8 struct {
	R, G, B uint8
}

// LinearRGB is a gamma-decoded sRGB color with channels nominally in [0, 1].
type LinearRGB struct {
	R, G, B float64
}

// XYZ holds CIE 1931 tristimulus values relative to White.
type XYZ struct {
	X, Y, Z float64
	White   WhitePoint
}

// Lab is a CIE L*a*b* color relative to White.
type Lab struct {
	L, A, B float64
	White   WhitePoint
}

// Msh is the polar form of Lab used for diverging interpolation:
// M is the magnitude, S the saturation angle in [0, π] and H the hue angle in (-π, π].
type Msh struct {
	M, S, H float64
}

// WhitePoint selects the reference white of the XYZ and Lab spaces.
type WhitePoint int

const (
	// D65 is the sRGB native white. It is the zero value.
	D65 WhitePoint = iota
	// D50 is the ICC profile connection space white.
	D50
)

// String returns the lowercase illuminant name.
func (w WhitePoint) String() string {
	switch w {
	case D65:
		return "d65"
	case D50:
		return "d50"
	}
	return fmt.Sprintf("WhitePoint(%d)", int(w))
}

// ParseWhitePoint accepts "d65" or "d50" in any case. An empty string yields D65.
func ParseWhitePoint(s string) (WhitePoint, error) {
	switch strings.ToLower(s) {
	case "", "d65":
		return D65, nil
	case "d50":
		return D50, nil
	}
	return D65, fmt.Errorf("unknown white point %q", s)
}

type mat3 [3][3]float64

func (m *mat3) apply(a, b, c float64) (float64, float64, float64) {
	return m[0][0]*a + m[0][1]*b + m[0][2]*c,
		m[1][0]*a + m[1][1]*b + m[1][2]*c,
		m[2][0]*a + m[2][1]*b + m[2][2]*c
}

// whiteParams pairs a reference white with the sRGB matrices adapted to it.
type whiteParams struct {
	xyz     [3]float64
	toXYZ   mat3
	fromXYZ mat3
}

var whites = [...]whiteParams{
	D65: {
		xyz: [3]float64{0.95047, 1.0, 1.08883},
		toXYZ: mat3{
			{0.412391, 0.357584, 0.180481},
			{0.212639, 0.715169, 0.072192},
			{0.019331, 0.119195, 0.950532},
		},
		fromXYZ: mat3{
			{3.240970, -1.537383, -0.498611},
			{-0.969244, 1.875968, 0.041555},
			{0.055630, -0.203977, 1.056972},
		},
	},
	// sRGB primaries adapted to D50.
	D50: {
		xyz: [3]float64{0.9642, 1.0, 0.8249},
		toXYZ: mat3{
			{0.436041, 0.385113, 0.143046},
			{0.222485, 0.716905, 0.060610},
			{0.013920, 0.097067, 0.713913},
		},
		fromXYZ: mat3{
			{3.134187, -1.617209, -0.490694},
			{-0.978749, 1.916130, 0.033433},
			{0.071964, -0.228994, 1.405754},
		},
	},
}

func (w WhitePoint) params() *whiteParams {
	if w < 0 || int(w) >= len(whites) {
		panic(fmt.Sprintf("colormap: invalid white point %d", int(w)))
	}
	return &whites[w]
}

// SRGBByteToLinear applies the sRGB decoding curve to one 8-bit channel.
func SRGBByteToLinear(v uint8) float64 {
	c := float64(v) / 255
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// LinearToSRGBByte applies the sRGB encoding curve and rounds to the nearest
// 8-bit value, clamping out-of-gamut input.
func LinearToSRGBByte(v float64) uint8 {
	if v <= 0.0031308 {
		v *= 12.92
	} else {
		v = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return clampByte(v * 255)
}

func clampByte(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// Linear decodes c into linear RGB.
func (c RGB8) Linear() LinearRGB {
	return LinearRGB{SRGBByteToLinear(c.R), SRGBByteToLinear(c.G), SRGBByteToLinear(c.B)}
}

// SRGB encodes c back into 8-bit sRGB.
func (c LinearRGB) SRGB() RGB8 {
	return RGB8{LinearToSRGBByte(c.R), LinearToSRGBByte(c.G), LinearToSRGBByte(c.B)}
}

// LinearRGBToXYZ converts linear sRGB to XYZ relative to white.
func LinearRGBToXYZ(c LinearRGB, white WhitePoint) XYZ {
	x, y, z := white.params().toXYZ.apply(c.R, c.G, c.B)
	return XYZ{X: x, Y: y, Z: z, White: white}
}

// XYZToLinearRGB is the inverse of LinearRGBToXYZ for the white c was computed with.
func XYZToLinearRGB(c XYZ) LinearRGB {
	r, g, b := c.White.params().fromXYZ.apply(c.X, c.Y, c.Z)
	return LinearRGB{R: r, G: g, B: b}
}

func labF(t float64) float64 {
	if t > 0.008856 {
		return math.Cbrt(t)
	}
	return 7.78703*t + 16.0/116.0
}

func labFInv(t float64) float64 {
	if t > 0.20689 {
		return t * t * t
	}
	return (t - 16.0/116.0) / 7.78703
}

// XYZToLab converts to CIE L*a*b* using the white c is expressed in.
func XYZToLab(c XYZ) Lab {
	wp := c.White.params().xyz
	fx := labF(c.X / wp[0])
	fy := labF(c.Y / wp[1])
	fz := labF(c.Z / wp[2])
	return Lab{
		L:     116*fy - 16,
		A:     500 * (fx - fy),
		B:     200 * (fy - fz),
		White: c.White,
	}
}

// LabToXYZ is the inverse of XYZToLab.
func LabToXYZ(c Lab) XYZ {
	wp := c.White.params().xyz
	fy := (c.L + 16) / 116
	return XYZ{
		X:     labFInv(fy+c.A/500) * wp[0],
		Y:     labFInv(fy) * wp[1],
		Z:     labFInv(fy-c.B/200) * wp[2],
		White: c.White,
	}
}

// LabToMsh converts to polar Msh. A zero-magnitude color returns the
// fallback Msh{} (saturation 0, hue 0) together with ErrDegenerateColor.
func LabToMsh(c Lab) (Msh, error) {
	m := math.Sqrt(c.L*c.L + c.A*c.A + c.B*c.B)
	if !(m >= degenerateMagnitude) {
		return Msh{}, ErrDegenerateColor
	}
	cos := c.L / m
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return Msh{M: m, S: math.Acos(cos), H: math.Atan2(c.B, c.A)}, nil
}

// MshToLab converts polar Msh back to Lab relative to white.
func MshToLab(c Msh, white WhitePoint) Lab {
	sinS := math.Sin(c.S)
	return Lab{
		L:     c.M * math.Cos(c.S),
		A:     c.M * sinS * math.Cos(c.H),
		B:     c.M * sinS * math.Sin(c.H),
		White: white,
	}
}

// RGBToMsh runs the full chain sRGB -> linear -> XYZ -> Lab -> Msh.
func RGBToMsh(c RGB8, white WhitePoint) (Msh, error) {
	msh, err := LabToMsh(XYZToLab(LinearRGBToXYZ(c.Linear(), white)))
	if err != nil {
		return msh, fmt.Errorf("rgb(%d,%d,%d): %w", c.R, c.G, c.B, err)
	}
	return msh, nil
}

// MshToRGB runs the chain Msh -> Lab -> XYZ -> linear -> sRGB, clamping to the gamut.
func MshToRGB(c Msh, white WhitePoint) RGB8 {
	return XYZToLinearRGB(LabToXYZ(MshToLab(c, white))).SRGB()
}
