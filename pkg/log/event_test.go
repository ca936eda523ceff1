package log

import "testing"

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerTransport.String(), "TRANSPORT"},
		{LayerNode.String(), "NODE"},
		{LayerModule.String(), "MODULE"},
		{Layer(9).String(), "UNKNOWN"},
		{CategoryFrame.String(), "FRAME"},
		{CategoryPacket.String(), "PACKET"},
		{CategoryState.String(), "STATE"},
		{CategoryError.String(), "ERROR"},
		{Category(9).String(), "UNKNOWN"},
		{StateEntityTransport.String(), "TRANSPORT"},
		{StateEntityHook.String(), "HOOK"},
		{StateEntityNode.String(), "NODE"},
		{StateEntity(9).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestEncodeDecodeUsesIntegerKeys(t *testing.T) {
	data, err := EncodeEvent(Event{SessionID: "x", Category: CategoryError, Error: &ErrorEventData{Message: "m"}})
	if err != nil {
		t.Fatal(err)
	}
	// A map header followed by small-integer keys, never text keys.
	if data[0]&0xE0 != 0xA0 {
		t.Fatalf("expected CBOR map, got 0x%02X", data[0])
	}
	if data[1] != 0x01 {
		t.Errorf("first key = 0x%02X, want 0x01", data[1])
	}

	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Error == nil || ev.Error.Message != "m" {
		t.Errorf("decoded error mismatch: %+v", ev.Error)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xFF, 0x00}); err == nil {
		t.Error("expected decode error")
	}
}
