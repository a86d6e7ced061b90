package colormap

import "errors"

var (
	// ErrUnknownRamp is returned when a ramp identifier has no entry in the table.
	ErrUnknownRamp = errors.New("unknown color ramp")

	// ErrInvalidSampleCount is returned when fewer than two samples are requested.
	ErrInvalidSampleCount = errors.New("invalid sample count")

	// ErrDegenerateColor is returned when a color has zero Lab magnitude and
	// therefore no defined saturation or hue.
	ErrDegenerateColor = errors.New("degenerate color")

	// ErrInvalidRamp is returned for malformed anchor tables.
	ErrInvalidRamp = errors.New("invalid color ramp")
)
