package descriptor

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
)

var (
	idRegex      = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	unsafeIDChar = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)
)

// MaxIDLength caps item identifiers.
const MaxIDLength = 256

// Descriptor is the feature representation of one item (immutable value object).
type Descriptor struct {
	id         string
	kind       Kind
	category   string
	parts      map[string][]float64
	attributes map[string]string
	createdAt  time.Time
}

// New validates parts against the schema and creates a Descriptor.
func New(
	id string, schema Schema, category string,
	parts map[string][]float64, attributes map[string]string,
) (Descriptor, error) {
	if err := ValidateID(id); err != nil {
		return Descriptor{}, err
	}
	d := Descriptor{
		id:         id,
		kind:       schema.Kind(),
		category:   category,
		parts:      cloneParts(parts),
		attributes: cloneAttributes(attributes),
		createdAt:  time.Now().UTC(),
	}
	if err := d.Validate(schema); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Reconstruct creates a Descriptor without validation (storage hydration).
func Reconstruct(
	id string, kind Kind, category string,
	parts map[string][]float64, attributes map[string]string, createdAt time.Time,
) Descriptor {
	return Descriptor{
		id: id, kind: kind, category: category,
		parts: parts, attributes: attributes, createdAt: createdAt,
	}
}

// ValidateID checks an item identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: item ID is required", domain.ErrInput)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: item ID too long (max %d)", domain.ErrInput, MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: item ID must be alphanumeric with dots, underscores and hyphens", domain.ErrInput)
	}
	return nil
}

// SanitizeID turns an uploaded filename into an item identifier.
// Directory components are dropped, spaces become underscores and other unsafe
// characters are removed. Returns "" when nothing usable is left.
func SanitizeID(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeIDChar.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" || name == "." {
		return ""
	}
	if len(name) > MaxIDLength {
		name = name[:MaxIDLength]
	}
	return name
}

// Validate checks that every schema part is present with the expected length and
// finite values. Unknown parts are rejected.
func (d *Descriptor) Validate(schema Schema) error {
	if d.kind != schema.Kind() {
		return fmt.Errorf("%w: %s descriptor %q checked against %s schema",
			domain.ErrMalformedDescriptor, d.kind, d.id, schema.Kind())
	}
	known := make(map[string]bool, len(d.parts))
	for _, p := range schema.Parts() {
		known[p.Name] = true
		v, ok := d.parts[p.Name]
		if !ok || len(v) == 0 {
			return fmt.Errorf("%w: %q is missing part %q", domain.ErrMalformedDescriptor, d.id, p.Name)
		}
		if p.Length > 0 && len(v) != p.Length {
			return fmt.Errorf("%w: %q part %q has length %d, want %d",
				domain.ErrMalformedDescriptor, d.id, p.Name, len(v), p.Length)
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: %q part %q has non-finite values",
					domain.ErrMalformedDescriptor, d.id, p.Name)
			}
		}
	}
	for name := range d.parts {
		if !known[name] {
			return fmt.Errorf("%w: %q has unknown part %q", domain.ErrMalformedDescriptor, d.id, name)
		}
	}
	return nil
}

// WithCategory returns a copy carrying the given category.
func (d Descriptor) WithCategory(category string) Descriptor {
	d.category = category
	return d
}

// WithAttributes returns a copy with extra attributes merged over the existing ones.
func (d Descriptor) WithAttributes(extra map[string]string) Descriptor {
	if len(extra) == 0 {
		return d
	}
	merged := cloneAttributes(d.attributes)
	if merged == nil {
		merged = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		merged[k] = v
	}
	d.attributes = merged
	return d
}

// ID returns the item identifier.
func (d *Descriptor) ID() string { return d.id }

// Kind returns the item kind.
func (d *Descriptor) Kind() Kind { return d.kind }

// Category returns the ingestion category.
func (d *Descriptor) Category() string { return d.category }

// Parts returns all named vectors.
func (d *Descriptor) Parts() map[string][]float64 { return d.parts }

// Part returns one named vector, nil if absent.
func (d *Descriptor) Part(name string) []float64 { return d.parts[name] }

// Attributes returns the pass-through display attributes.
func (d *Descriptor) Attributes() map[string]string { return d.attributes }

// CreatedAt returns the ingestion time.
func (d *Descriptor) CreatedAt() time.Time { return d.createdAt }

func cloneParts(m map[string][]float64) map[string][]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

func cloneAttributes(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
