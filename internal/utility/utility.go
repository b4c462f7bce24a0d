package utility

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

type Avatar struct {
	Initial string `json:"initial"`
	Color   string `json:"color"`
	Hue     int    `json:"hue"`
}

// NewAvatar derives the initial and color shown for a player name.
func NewAvatar(name string) Avatar {
	seed := name
	if seed == "" {
		seed = "player"
	}
	hue := HashToHue(seed)
	return Avatar{
		Initial: AvatarInitial(name),
		Color:   HSLToHex(float64(hue), 0.9, 0.6),
		Hue:     hue,
	}
}

// AvatarInitial is the upper-cased first letter of the first word, or "?".
func AvatarInitial(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(fields[0])
	return string(unicode.ToUpper(r))
}

// HashToHue maps s onto [0, 360) with a 32-bit rolling hash over UTF-16 code units.
func HashToHue(s string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % 360)
}

// HSLToHex converts hue in degrees and saturation/lightness in [0,1] to #rrggbb.
func HSLToHex(h, s, l float64) string {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g = c, x
	case hp < 2:
		r, g = x, c
	case hp < 3:
		g, b = c, x
	case hp < 4:
		g, b = x, c
	case hp < 5:
		r, b = x, c
	default:
		r, b = c, x
	}
	m := l - c/2
	to := func(v float64) int { return int(math.Round((v + m) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to(r), to(g), to(b))
}

// DisplayName falls back to "Player " plus the first four characters of the id.
func DisplayName(id string, handle *string) string {
	if handle != nil {
		if h := strings.TrimSpace(*handle); h != "" {
			return h
		}
	}
	short := id
	if len(short) > 4 {
		short = short[:4]
	}
	return "Player " + short
}
