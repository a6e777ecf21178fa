package scan

import (
	"sort"

	"github.com/cwbudde/laserlines/internal/intensity"
)

// Bands holds the quantised darkness level of every pixel. Higher values are
// darker.
type Bands struct {
	W, H int
	Pix  []uint8
}

// At returns the band of pixel (x, y).
func (b *Bands) At(x, y int) uint8 {
	return b.Pix[y*b.W+x]
}

// Thresholds picks the levels+1 most frequent sample values of g and returns
// the midpoints between adjacent ones, highest first. Ties in frequency go
// to the lower value.
func Thresholds(g *intensity.Grid, levels int) []float64 {
	hist := g.Histogram()

	values := make([]int, 256)
	for i := range values {
		values[i] = i
	}
	sort.SliceStable(values, func(i, j int) bool {
		return hist[values[i]] > hist[values[j]]
	})

	dominant := values[:levels+1]
	sort.Sort(sort.Reverse(sort.IntSlice(dominant)))

	mids := make([]float64, 0, levels)
	for i := 1; i < len(dominant); i++ {
		mids = append(mids, float64(dominant[i-1]+dominant[i])/2)
	}
	return mids
}

// Quantize assigns every pixel the number of thresholds its value lies
// strictly below.
func Quantize(g *intensity.Grid, levels int) *Bands {
	mids := Thresholds(g, levels)

	b := &Bands{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	for i, v := range g.Pix {
		var band uint8
		for _, t := range mids {
			if float64(v) < t {
				band++
			}
		}
		b.Pix[i] = band
	}
	return b
}
