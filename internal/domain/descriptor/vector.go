package descriptor

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// Distance is the Euclidean distance between a and b.
// Vectors of different length are never compared.
func Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: length %d vs %d", domain.ErrMalformedDescriptor, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Norm is the Euclidean norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// GroupNorm is the norm of the group's parts concatenated in schema order.
func (d *Descriptor) GroupNorm(g Group) float64 {
	var sum float64
	for _, p := range g.Parts {
		n := Norm(d.parts[p.Name])
		sum += n * n
	}
	return math.Sqrt(sum)
}
