package pmstest

import (
	"math/rand/v2"
	"time"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
)

// Frame returns a valid 32-byte frame carrying values.
func Frame(values [pms7003.NumValues]uint16) []byte {
	f := pms7003.EncodeFrame(values)
	return f[:]
}

// Values is a random walk over the twelve data words, starting uniformly in
// [0, 500] and moving by a normal step with standard deviation 10, floored
// at zero.
type Values struct {
	rng     *rand.Rand
	current [pms7003.NumValues]uint16
	started bool
}

// NewValues returns a generator seeded with seed.
func NewValues(seed uint64) *Values {
	return &Values{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns the next set of values.
func (g *Values) Next() [pms7003.NumValues]uint16 {
	if !g.started {
		for i := range g.current {
			g.current[i] = uint16(g.rng.IntN(501))
		}
		g.started = true
		return g.current
	}
	for i, v := range g.current {
		next := int(v) + int(g.rng.NormFloat64()*10)
		switch {
		case next < 0:
			next = 0
		case next > 0xFFFF:
			next = 0xFFFF
		}
		g.current[i] = uint16(next)
	}
	return g.current
}

// Frames returns a Refill function that yields one fresh frame per call.
func (g *Values) Frames() func() []byte {
	return func() []byte { return Frame(g.Next()) }
}

// Measurements returns n measurements spaced every apart, ending now.
func Measurements(g *Values, n int, every time.Duration) []pms7003.Measurement {
	out := make([]pms7003.Measurement, 0, n)
	start := time.Now().Add(-time.Duration(n) * every)
	for i := 0; i < n; i++ {
		out = append(out, pms7003.NewMeasurement(start.Add(time.Duration(i)*every), g.Next()))
	}
	return out
}
