package attributes

// Metadata is an ordered mapping from attribute name to value for one
// file. The type discipline distinguishes Extracted (user-provided
// values only) from Extended (after derived attributes are computed)
// by which constructor produced it; Go has no phantom-type marker, so
// this is enforced by Extend being the only way to get an Extended
// metadata set and by extractor code never constructing one by hand.
type Metadata struct {
	order  []string
	values map[string]Value
}

// NewMetadata builds an empty (user-specified-only) metadata set.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]Value)}
}

// Set records value for name, preserving first-insertion order.
func (m *Metadata) Set(name string, v Value) {
	if _, exists := m.values[name]; !exists {
		m.order = append(m.order, name)
	}
	m.values[name] = v
}

// Get returns the value for name and whether it is present.
func (m *Metadata) Get(name string) (Value, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Snapshot returns a read-only copy of the current name->value map,
// the "current (read-only) view of user values" derivation functions
// receive.
func (m *Metadata) Snapshot() map[string]Value {
	out := make(map[string]Value, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Extend computes every derived attribute in Table() declaration
// order, in place, appending any derivation warning to warnings. The
// derivation step is total: it never fails the file, only appends
// warnings.
func (m *Metadata) Extend(warnings *[]string) {
	for _, spec := range Table() {
		if !spec.IsDerived() {
			continue
		}
		raw, warning := spec.Derive(m.Snapshot())
		if warning != "" {
			*warnings = append(*warnings, warning)
		}
		if raw == "" {
			continue
		}
		v, ok, err := ParseValue(spec, raw)
		if err != nil {
			*warnings = append(*warnings, "deriving "+spec.Name+": "+err.Error())
			continue
		}
		if ok {
			m.Set(spec.Name, v)
		}
	}
}

// Names returns attribute names in insertion (≈ canonical) order.
func (m *Metadata) Names() []string {
	return append([]string(nil), m.order...)
}
