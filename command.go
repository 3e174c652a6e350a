package pms7003

// Power state commands from the PMS7003 data manual (command 0xE4).
var (
	wakeupCommand = [7]byte{StartByte1, StartByte2, 0xE4, 0x00, 0x01, 0x01, 0x74}
	sleepCommand  = [7]byte{StartByte1, StartByte2, 0xE4, 0x00, 0x00, 0x01, 0x73}
)

// WakeupCommand returns the frame that switches the sensor to normal mode.
func WakeupCommand() []byte {
	c := wakeupCommand
	return c[:]
}

// SleepCommand returns the frame that switches the sensor to sleep mode.
func SleepCommand() []byte {
	c := sleepCommand
	return c[:]
}
