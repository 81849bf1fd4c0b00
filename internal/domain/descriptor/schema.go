package descriptor

import (
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// Kind identifies the item type a descriptor was computed from.
type Kind string

// Supported item kinds.
const (
	KindImage Kind = "image"
	KindMesh  Kind = "mesh"
)

// IsValid reports whether k has a registered schema.
func (k Kind) IsValid() bool {
	return k == KindImage || k == KindMesh
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, s)
	}
	return k, nil
}

// Part is one named vector inside a group.
// Length 0 means the extractor decides the length; only pairwise equality is enforced.
type Part struct {
	Name   string
	Length int
}

// Group is a named set of parts scored together.
type Group struct {
	Name  string
	Parts []Part
}

// MultiPart reports whether the group carries sub-weights.
func (g Group) MultiPart() bool { return len(g.Parts) > 1 }

// Schema fixes the group layout of one item kind.
type Schema struct {
	kind   Kind
	groups []Group
}

// NewSchema validates group and part names and builds a Schema.
func NewSchema(kind Kind, groups ...Group) (Schema, error) {
	if len(groups) == 0 {
		return Schema{}, fmt.Errorf("schema %q: at least one group is required", kind)
	}
	seen := make(map[string]bool)
	for _, g := range groups {
		if g.Name == "" {
			return Schema{}, fmt.Errorf("schema %q: group name is required", kind)
		}
		if len(g.Parts) == 0 {
			return Schema{}, fmt.Errorf("schema %q: group %q has no parts", kind, g.Name)
		}
		if seen["g:"+g.Name] {
			return Schema{}, fmt.Errorf("schema %q: duplicate group %q", kind, g.Name)
		}
		seen["g:"+g.Name] = true
		for _, p := range g.Parts {
			if p.Name == "" || p.Length < 0 {
				return Schema{}, fmt.Errorf("schema %q: invalid part in group %q", kind, g.Name)
			}
			if seen["p:"+p.Name] {
				return Schema{}, fmt.Errorf("schema %q: duplicate part %q", kind, p.Name)
			}
			seen["p:"+p.Name] = true
		}
	}
	return Schema{kind: kind, groups: groups}, nil
}

// Kind returns the item kind this schema describes.
func (s Schema) Kind() Kind { return s.kind }

// Groups returns the groups in scoring order.
func (s Schema) Groups() []Group { return s.groups }

// Normalizer is the constant k dividing the weighted group sum: the group count.
func (s Schema) Normalizer() float64 { return float64(len(s.groups)) }

// Parts returns all parts in group order.
func (s Schema) Parts() []Part {
	var out []Part
	for _, g := range s.groups {
		out = append(out, g.Parts...)
	}
	return out
}

// Group looks up a group by name.
func (s Schema) Group(name string) (Group, bool) {
	for _, g := range s.groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// Image part names, as stored.
const (
	PartHuMoments      = "hu_moments"
	PartEdgeHistogram  = "edge_histogram"
	PartColorHistogram = "color_histogram"
	PartAverageColor   = "average_color"
	PartDominantColors = "dominant_colors"
	PartTexture        = "texture"
)

// Mesh part names, as stored.
const (
	PartFourier = "fourier_coefficients"
	PartZernike = "zernike_moments"
)

// Image vector lengths.
const (
	HuMomentsLen      = 7
	EdgeHistogramLen  = 256
	ColorHistogramLen = 3 * 256
	AverageColorLen   = 3
	DominantColorsLen = 3 * 3
	TextureLen        = 4
)

var (
	imageSchema = mustSchema(KindImage,
		Group{Name: "frame", Parts: []Part{
			{Name: PartHuMoments, Length: HuMomentsLen},
			{Name: PartEdgeHistogram, Length: EdgeHistogramLen},
		}},
		Group{Name: "color", Parts: []Part{
			{Name: PartColorHistogram, Length: ColorHistogramLen},
			{Name: PartAverageColor, Length: AverageColorLen},
			{Name: PartDominantColors, Length: DominantColorsLen},
		}},
		Group{Name: "texture", Parts: []Part{
			{Name: PartTexture, Length: TextureLen},
		}},
	)
	meshSchema = mustSchema(KindMesh,
		Group{Name: "fourier", Parts: []Part{{Name: PartFourier}}},
		Group{Name: "zernike", Parts: []Part{{Name: PartZernike}}},
	)
)

// ImageSchema is the frame/color/texture layout of 2D images.
func ImageSchema() Schema { return imageSchema }

// MeshSchema is the fourier/zernike layout of 3D meshes.
func MeshSchema() Schema { return meshSchema }

// SchemaFor returns the schema registered for kind.
func SchemaFor(kind Kind) (Schema, error) {
	switch kind {
	case KindImage:
		return imageSchema, nil
	case KindMesh:
		return meshSchema, nil
	default:
		return Schema{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
}

func mustSchema(kind Kind, groups ...Group) Schema {
	s, err := NewSchema(kind, groups...)
	if err != nil {
		panic(err)
	}
	return s
}
