package colormap

import (
	"encoding/json"
	"fmt"
)

// MarshalText encodes the mode as "linear" or "diverging".
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case Linear, Diverging:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidRamp, int(m))
}

// UnmarshalText is the inverse of MarshalText.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalJSON encodes the color as [r, g, b].
func (c RGB8) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

// UnmarshalJSON decodes a [r, g, b] array.
func (c *RGB8) UnmarshalJSON(data []byte) error {
	var v [3]uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("color must be [r, g, b] with 0-255 channels: %w", err)
	}
	*c = RGB8{v[0], v[1], v[2]}
	return nil
}

type anchorJSON struct {
	Position float64 `json:"position"`
	Mode     Mode    `json:"mode"`
	Color    RGB8    `json:"color"`
}

// MarshalJSON encodes the anchor as {"position", "mode", "color"}.
func (a Anchor) MarshalJSON() ([]byte, error) {
	return json.Marshal(anchorJSON(a))
}

// UnmarshalJSON decodes an anchor; a missing mode means linear.
func (a *Anchor) UnmarshalJSON(data []byte) error {
	v := anchorJSON{Mode: Linear}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Anchor(v)
	return nil
}
