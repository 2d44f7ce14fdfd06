package i2c

import "testing"

func TestAttachSlave(t *testing.T) {
	bus := NewController()
	eeprom := NewEEPROM()
	eeprom.SetBusAddress(0x50)

	if err := bus.AttachSlave(0x50, eeprom); err != nil {
		t.Fatalf("AttachSlave: %v", err)
	}
	if bus.SlaveAt(0x50) != eeprom {
		t.Error("slave not reachable at its address")
	}
	if bus.SlaveAt(0x51) != nil {
		t.Error("empty address returned a slave")
	}
	if eeprom.BusAddress() != 0x50 {
		t.Errorf("BusAddress = %#x", eeprom.BusAddress())
	}
}

func TestAttachSlaveRejections(t *testing.T) {
	bus := NewController()

	if err := bus.AttachSlave(0x80, NewEEPROM()); err == nil {
		t.Error("8-bit address accepted")
	}

	if err := bus.AttachSlave(0x50, NewEEPROM()); err != nil {
		t.Fatalf("AttachSlave: %v", err)
	}
	if err := bus.AttachSlave(0x50, NewEEPROM()); err == nil {
		t.Error("duplicate address accepted")
	}
}
