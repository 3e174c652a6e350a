package pms7003

import (
	"fmt"
	"time"
)

// NumValues is the number of data words carried by a frame.
const NumValues = 12

// Measurement is one decoded sensor reading. CF1 fields are concentrations
// under factory calibration, ATM fields under atmospheric conditions (µg/m³).
// N* fields are particle counts per 0.1 L of air beyond the given diameter (µm).
type Measurement struct {
	Timestamp time.Time

	PM1_0CF1 uint16
	PM2_5CF1 uint16
	PM10CF1  uint16

	PM1_0Atm uint16
	PM2_5Atm uint16
	PM10Atm  uint16

	N0_3 uint16
	N0_5 uint16
	N1_0 uint16
	N2_5 uint16
	N5_0 uint16
	N10  uint16
}

// NewMeasurement builds a Measurement from values in frame order.
func NewMeasurement(ts time.Time, v [NumValues]uint16) Measurement {
	return Measurement{
		Timestamp: ts,
		PM1_0CF1:  v[0],
		PM2_5CF1:  v[1],
		PM10CF1:   v[2],
		PM1_0Atm:  v[3],
		PM2_5Atm:  v[4],
		PM10Atm:   v[5],
		N0_3:      v[6],
		N0_5:      v[7],
		N1_0:      v[8],
		N2_5:      v[9],
		N5_0:      v[10],
		N10:       v[11],
	}
}

// Values returns the data words in frame order.
func (m Measurement) Values() [NumValues]uint16 {
	return [NumValues]uint16{
		m.PM1_0CF1, m.PM2_5CF1, m.PM10CF1,
		m.PM1_0Atm, m.PM2_5Atm, m.PM10Atm,
		m.N0_3, m.N0_5, m.N1_0, m.N2_5, m.N5_0, m.N10,
	}
}

func (m Measurement) String() string {
	return fmt.Sprintf(
		"%s pm1.0=%d/%d pm2.5=%d/%d pm10=%d/%d n0.3=%d n0.5=%d n1.0=%d n2.5=%d n5.0=%d n10=%d",
		m.Timestamp.Format(time.RFC3339),
		m.PM1_0CF1, m.PM1_0Atm,
		m.PM2_5CF1, m.PM2_5Atm,
		m.PM10CF1, m.PM10Atm,
		m.N0_3, m.N0_5, m.N1_0, m.N2_5, m.N5_0, m.N10,
	)
}
