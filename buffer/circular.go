package buffer

import "gonum.org/v1/gonum/stat"

// CircularFloat is a fixed window over the most recent float64 values, used
// for the chain's recent acceptance rates. The window size is always even so
// it splits into an older and a newer half.
type CircularFloat struct {
	buffer    []float64 // actual storage
	pos       int       // next slot to write, which is also the oldest value once full
	BufSize   int       // BufSize is the fixed number of values maintained in memory
	Count     int       // Count is the number of values in memory. Will always be <= BufSize
	TotalSeen int64     // TotalSeen is the total number of times Add has been called
}

// NewCircularFloat creates a window of totalSize values. Odd sizes round down
// and a size below 2 becomes 2.
func NewCircularFloat(totalSize int) *CircularFloat {
	half := totalSize / 2
	if half < 1 {
		half = 1
	}

	return &CircularFloat{
		buffer:  make([]float64, 2*half),
		BufSize: 2 * half,
	}
}

// Add appends the given value to the buffer, overwriting the oldest entry
func (c *CircularFloat) Add(f float64) {
	c.TotalSeen++
	c.buffer[c.pos] = f
	c.pos = (c.pos + 1) % c.BufSize
	if c.Count < c.BufSize {
		c.Count++
	}
}

// Values returns a copy of the held values, oldest first
func (c *CircularFloat) Values() []float64 {
	vals := make([]float64, c.Count)
	start := (c.pos - c.Count + c.BufSize) % c.BufSize
	for i := range vals {
		vals[i] = c.buffer[(start+i)%c.BufSize]
	}
	return vals
}

// Mean returns the mean of the values currently held (0 when empty)
func (c *CircularFloat) Mean() float64 {
	if c.Count < 1 {
		return 0
	}
	return stat.Mean(c.Values(), nil)
}

// HalfMeans returns the mean of the older and the newer half of the window.
// A large gap between the two suggests the acceptance rate is still drifting.
// ok is false until the window has filled.
func (c *CircularFloat) HalfMeans() (first float64, second float64, ok bool) {
	if c.Count < c.BufSize {
		return 0, 0, false
	}

	vals := c.Values()
	half := c.BufSize / 2
	return stat.Mean(vals[:half], nil), stat.Mean(vals[half:], nil), true
}
