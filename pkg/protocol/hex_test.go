package protocol

import "testing"

func TestToASCIIHex(t *testing.T) {
	tests := []struct {
		name   string
		value  int
		digits int
		want   string
	}{
		{"zero", 0, 2, "00"},
		{"plain digits", 0x42, 2, "42"},
		{"high nibbles use ascii variant", 0xaf, 2, ":?"},
		{"three digits", 0x3f8, 3, "3?8"},
		{"truncates to digit count", 0x1234, 2, "34"},
		{"no digits", 0x12, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToASCIIHex(tt.value, tt.digits); got != tt.want {
				t.Errorf("ToASCIIHex(%#x, %d) = %q, want %q", tt.value, tt.digits, got, tt.want)
			}
		})
	}
}

func TestFromASCIIHex(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr bool
	}{
		{"regular hex", "1a2f", 0x1a2f, false},
		{"ascii variant", ":?", 0xaf, false},
		{"mixed", "1;", 0x1b, false},
		{"empty rejected", "", 0, true},
		{"uppercase rejected", "1A", 0, true},
		{"invalid character", "12g4", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromASCIIHex(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromASCIIHex(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("FromASCIIHex(%q) = %#x, want %#x", tt.text, got, tt.want)
			}
		})
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, value := range []int{0, 1, 0x7f, 0x80, 0xfe, 0xff, 0x1234, 0xffff} {
		text := ToASCIIHex(value, 4)
		got, err := FromASCIIHex(text)
		if err != nil {
			t.Fatalf("FromASCIIHex(%q): %v", text, err)
		}
		if got != value {
			t.Errorf("round trip %#x via %q = %#x", value, text, got)
		}
	}
}

func TestDecodeSpecialValue(t *testing.T) {
	t.Run("signed byte", func(t *testing.T) {
		if v := DecodeSpecialValue(MANone, 0x19); v == nil || *v != 25 {
			t.Errorf("positive reading = %v, want 25", v)
		}
		if v := DecodeSpecialValue(MANone, 0xe2); v == nil || *v != -30 {
			t.Errorf("negative reading = %v, want -30", v)
		}
		if v := DecodeSpecialValue(MANone, 0x80); v != nil {
			t.Errorf("null marker = %v, want nil", v)
		}
	})
	t.Run("current meter 10A mode", func(t *testing.T) {
		if v := DecodeSpecialValue(MATX3AC10A, 0x7d); v == nil || *v != 12.5 {
			t.Errorf("reading = %v, want 12.5", v)
		}
		if v := DecodeSpecialValue(MATX3AC10A, 0xfe); v != nil {
			t.Errorf("null marker = %v, want nil", v)
		}
	})
	t.Run("current meter 100A mode", func(t *testing.T) {
		if v := DecodeSpecialValue(MATX3AC100A, 0x63); v == nil || *v != 99 {
			t.Errorf("reading = %v, want 99", v)
		}
		if v := DecodeSpecialValue(MATX3AC100A, 0xfe); v != nil {
			t.Errorf("null marker = %v, want nil", v)
		}
	})
}

func TestEncodeSpecialValueRoundTrip(t *testing.T) {
	values := []*float64{nil, f64(0), f64(25), f64(-30), f64(99)}
	for _, ma := range []uint8{MANone, MATX3AC10A, MATX3AC100A} {
		for _, v := range values {
			encoded := EncodeSpecialValue(ma, v)
			decoded := DecodeSpecialValue(ma, encoded)
			switch {
			case v == nil && decoded != nil:
				t.Errorf("ma %d: nil round tripped to %v", ma, *decoded)
			case v != nil && ma != MATX3AC10A && (decoded == nil || *decoded != *v):
				t.Errorf("ma %d: %v round tripped to %v", ma, *v, decoded)
			}
		}
	}
}

func f64(v float64) *float64 { return &v }
