package protocol

import "fmt"

// Message attribute values that change how a special sensor reading is
// encoded on the wire.
const (
	MANone      uint8 = 0x00
	MATX3AC10A  uint8 = 0x01 // TX-3AC current meter in 10A mode
	MATX3AC100A uint8 = 0x02 // TX-3AC current meter in 100A mode
)

// ToASCIIHex converts a value to the hex variant used in commands. Unlike
// regular hex it uses the six characters following '9' in the ASCII table
// instead of 'a' to 'f'.
//
//	Regular hex: 0123456789abcdef
//	ASCII hex:   0123456789:;<=>?
func ToASCIIHex(value int, digits int) string {
	if digits < 1 {
		return ""
	}
	buf := make([]byte, digits)
	v := value
	for i := digits - 1; i >= 0; i-- {
		buf[i] = byte('0' + (v & 0xf))
		v >>= 4
	}
	return string(buf)
}

// FromASCIIHex converts from both ASCII and regular hex. Which one the base
// unit emits depends on whether a value was queried (regular hex) or mirrored
// back from a set command (ASCII hex).
func FromASCIIHex(text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	value := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		var digit int
		switch {
		case c >= '0' && c <= '?':
			digit = int(c - '0')
		case c >= 'a' && c <= 'f':
			digit = 0xa + int(c-'a')
		default:
			return 0, fmt.Errorf("invalid hex character %q", c)
		}
		value = value<<4 + digit
	}
	return value, nil
}

// IsASCIIHex reports whether text contains only hex characters accepted
// by FromASCIIHex.
func IsASCIIHex(text string) bool {
	_, err := FromASCIIHex(text)
	return err == nil
}

// DecodeSpecialValue decodes a special sensor reading using the message
// attribute. Returns nil when the raw value is the sensor's null marker.
func DecodeSpecialValue(messageAttribute uint8, value int) *float64 {
	switch messageAttribute {
	case MATX3AC100A:
		if value == 0xfe {
			return nil
		}
		f := float64(value)
		return &f
	case MATX3AC10A:
		if value == 0xfe {
			return nil
		}
		f := float64(value) / 10
		return &f
	default:
		// Signed byte with 0x80 as the null marker.
		if value == 0x80 {
			return nil
		}
		if value >= 0x80 {
			f := float64(value) - 0x100
			return &f
		}
		f := float64(value)
		return &f
	}
}

// EncodeSpecialValue is the inverse of DecodeSpecialValue.
func EncodeSpecialValue(messageAttribute uint8, value *float64) int {
	switch messageAttribute {
	case MATX3AC100A:
		if value == nil {
			return 0xfe
		}
		return int(*value)
	case MATX3AC10A:
		if value == nil {
			return 0xfe
		}
		return int(*value * 10)
	default:
		if value == nil {
			return 0x80
		}
		if *value < 0 {
			return 0x100 + int(*value)
		}
		return int(*value)
	}
}
