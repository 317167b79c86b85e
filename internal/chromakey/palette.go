package chromakey

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is an exact color key; alpha is not part of the match.
type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// RemovalSet is a read-only set of colors that are always keyed out,
// independently of the hue band.
type RemovalSet struct {
	colors map[RGB]struct{}
}

func NewRemovalSet(colors ...RGB) RemovalSet {
	m := make(map[RGB]struct{}, len(colors))
	for _, c := range colors {
		m[c] = struct{}{}
	}
	return RemovalSet{colors: m}
}

// Contains reports whether c is an exact member. The zero RemovalSet is empty.
func (s RemovalSet) Contains(c RGB) bool {
	_, ok := s.colors[c]
	return ok
}

func (s RemovalSet) Len() int {
	return len(s.colors)
}

// ParseRemovalSet parses "r,g,b;r,g,b" text. Blank entries are ignored.
func ParseRemovalSet(text string) (RemovalSet, error) {
	var colors []RGB
	for _, entry := range strings.Split(text, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		c, err := ParseRGB(entry)
		if err != nil {
			return RemovalSet{}, err
		}
		colors = append(colors, c)
	}
	return NewRemovalSet(colors...), nil
}

// ParseRGB parses a single "r,g,b" triple.
func ParseRGB(text string) (RGB, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("color %q: want 3 components, got %d: %w", text, len(parts), ErrMalformedPixel)
	}
	var v [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return RGB{}, fmt.Errorf("color %q: %v: %w", text, err, ErrMalformedPixel)
		}
		if n < 0 || n > 255 {
			return RGB{}, fmt.Errorf("color %q: component %d out of range: %w", text, n, ErrMalformedPixel)
		}
		v[i] = uint8(n)
	}
	return RGB{R: v[0], G: v[1], B: v[2]}, nil
}

// RemovalSetFromTriples builds a set from integer triples, as they arrive in
// JSON job messages. Every entry must have exactly three components.
func RemovalSetFromTriples(triples [][]int) (RemovalSet, error) {
	colors := make([]RGB, 0, len(triples))
	for _, t := range triples {
		if len(t) != 3 {
			return RemovalSet{}, fmt.Errorf("color %v: want 3 components, got %d: %w", t, len(t), ErrMalformedPixel)
		}
		for _, n := range t {
			if n < 0 || n > 255 {
				return RemovalSet{}, fmt.Errorf("color %v: component %d out of range: %w", t, n, ErrMalformedPixel)
			}
		}
		colors = append(colors, RGB{R: uint8(t[0]), G: uint8(t[1]), B: uint8(t[2])})
	}
	return NewRemovalSet(colors...), nil
}

// DefaultRemovalSet returns the green-screen spill and black border colors
// sampled from the studio footage. Duplicates in the list are harmless.
func DefaultRemovalSet() RemovalSet {
	return NewRemovalSet(defaultColors...)
}

var defaultColors = []RGB{
	{0, 255, 0}, {1, 254, 0}, {6, 252, 39}, {6, 255, 40}, {9, 183, 31},
	{0, 0, 0}, {15, 230, 40}, {6, 252, 39}, {1, 0, 0}, {9, 184, 31},
	{10, 183, 32}, {1, 255, 37}, {5, 254, 39}, {10, 182, 32}, {2, 0, 0},
	{61, 117, 68}, {23, 246, 55}, {25, 242, 48}, {128, 202, 126}, {3, 253, 36},
	{22, 251, 52}, {22, 246, 53}, {6, 255, 41}, {10, 184, 31}, {0, 252, 33},
	{109, 237, 126}, {3, 254, 37}, {5, 253, 39}, {41, 245, 70}, {8, 253, 40},
	{15, 252, 48}, {6, 253, 39}, {4, 255, 38}, {0, 255, 37}, {39, 247, 68},
	{1, 252, 36}, {0, 253, 33}, {114, 231, 130}, {0, 253, 32}, {140, 221, 150},
	{146, 214, 154}, {10, 251, 43}, {11, 215, 40}, {5, 253, 38}, {171, 235, 167},
	{6, 251, 38}, {0, 253, 34}, {55, 238, 81}, {43, 241, 73}, {80, 242, 101},
	{24, 219, 41}, {60, 249, 89}, {78, 212, 75}, {34, 234, 53}, {2, 255, 38},
	{8, 252, 40}, {70, 214, 68}, {62, 243, 79}, {5, 255, 38}, {29, 248, 52},
	{5, 253, 39}, {11, 238, 41}, {2, 255, 37}, {10, 247, 41}, {0, 255, 36},
	{37, 230, 52}, {25, 238, 48}, {78, 243, 102}, {89, 245, 113}, {55, 246, 82},
	{141, 243, 157}, {34, 240, 61}, {43, 241, 71}, {0, 250, 34}, {0, 255, 35},
}
