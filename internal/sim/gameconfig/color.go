package gameconfig

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is packed RGBA, 0xRRGGBBAA. In JSON it is either a number or a
// string holding "0x"-prefixed hex or decimal digits.
type Color uint32

func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n uint32
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("color %s: want string or uint32", string(b))
		}
		*c = Color(n)
		return nil
	}
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%08X", uint32(c)))
}

func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return Color(v), nil
}
