package item

// Features is what the extractor reported for one uploaded item.
// Err is set when that item alone could not be processed.
type Features struct {
	Name       string
	Parts      map[string][]float64
	Attributes map[string]string
	Err        error
}
