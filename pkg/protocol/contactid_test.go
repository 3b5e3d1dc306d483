package protocol

import "testing"

func TestParseContactID(t *testing.T) {
	t.Run("device event", func(t *testing.T) {
		// Account 1234, away arming, controller zone 01-03.
		c, err := ParseContactID("123418140001003c")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.AccountNumber != 0x1234 || c.MessageType != 0x18 {
			t.Errorf("account = %04x, type = %02x", c.AccountNumber, c.MessageType)
		}
		if c.Qualifier != ContactIDQualifierEvent {
			t.Errorf("qualifier = %v", c.Qualifier)
		}
		if c.EventCode != ContactIDEventAway {
			t.Errorf("event code = %v", c.EventCode)
		}
		if c.EventCategory() != ContactIDCategoryOpenClose {
			t.Errorf("event category = %v", c.EventCategory())
		}
		if c.Category != CategoryController || c.Zone() != "01-03" {
			t.Errorf("category = %v, zone = %q", c.Category, c.Zone())
		}
		if c.UserID != nil {
			t.Errorf("user id = %v", c.UserID)
		}
	})

	t.Run("base unit event carries user", func(t *testing.T) {
		c, err := ParseContactID("1234181573005023")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.EventCode != ContactIDEventDisarm {
			t.Errorf("event code = %v", c.EventCode)
		}
		if c.Category != CategoryBaseUnit || c.Zone() != "" {
			t.Errorf("category = %v, zone = %q", c.Category, c.Zone())
		}
		if c.UserID == nil || *c.UserID != 2 {
			t.Errorf("user id = %v", c.UserID)
		}
	})

	t.Run("checksum failure", func(t *testing.T) {
		if _, err := ParseContactID("123418140001003d"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid message type", func(t *testing.T) {
		if _, err := ParseContactID("123417140001003d"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid length", func(t *testing.T) {
		if _, err := ParseContactID("12341814"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid digit", func(t *testing.T) {
		if _, err := ParseContactID("12341814000100zc"); err == nil {
			t.Fatal("expected error")
		}
	})
}
