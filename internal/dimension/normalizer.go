package dimension

import (
	"fmt"

	"github.com/musexhq/musex/pkg/models"
)

// Normalizer maps raw dimension values into a fixed output range (default
// [0,1]) by linear interpolation against each dimension's global min/max.
// Descriptors are loaded once from the dimension statistics document and
// cached for the lifetime of the Normalizer.
type Normalizer struct {
	descriptors map[string]models.DimensionDescriptor
	outMin      float64
	outMax      float64
}

// NewNormalizer creates a normalizer over the given descriptors with
// output range [0,1].
func NewNormalizer(descriptors map[string]models.DimensionDescriptor) *Normalizer {
	return NewNormalizerWithRange(descriptors, 0, 1)
}

// NewNormalizerWithRange creates a normalizer with a custom output range.
func NewNormalizerWithRange(descriptors map[string]models.DimensionDescriptor, outMin, outMax float64) *Normalizer {
	return &Normalizer{
		descriptors: descriptors,
		outMin:      outMin,
		outMax:      outMax,
	}
}

// Descriptor returns the cached descriptor for dim.
func (n *Normalizer) Descriptor(dim string) (models.DimensionDescriptor, error) {
	d, ok := n.descriptors[dim]
	if !ok {
		return models.DimensionDescriptor{}, fmt.Errorf("%w: %q", models.ErrUnknownDimension, dim)
	}
	return d, nil
}

// Descriptors returns all cached descriptors keyed by dimension name.
func (n *Normalizer) Descriptors() map[string]models.DimensionDescriptor {
	return n.descriptors
}

// Normalize maps a raw value of dim into the output range. A degenerate
// dimension (min == max) maps to the midpoint of the output range.
func (n *Normalizer) Normalize(dim string, raw float64) (float64, error) {
	d, err := n.Descriptor(dim)
	if err != nil {
		return 0, err
	}
	span := d.Max - d.Min
	if span == 0 {
		return n.outMin + (n.outMax-n.outMin)/2, nil
	}
	t := (raw - d.Min) / span
	return n.outMin + t*(n.outMax-n.outMin), nil
}

// Denormalize is the inverse of Normalize, mapping a value in the output
// range back into raw feature units.
func (n *Normalizer) Denormalize(dim string, v float64) (float64, error) {
	d, err := n.Descriptor(dim)
	if err != nil {
		return 0, err
	}
	outSpan := n.outMax - n.outMin
	if outSpan == 0 {
		return d.Min, nil
	}
	t := (v - n.outMin) / outSpan
	return d.Min + t*(d.Max-d.Min), nil
}
