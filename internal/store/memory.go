package store

// memory keeps records in a map. Values are copied in and out.
type memory struct {
	data map[string][]byte
}

func newMemory() *memory {
	return &memory{data: make(map[string][]byte)}
}

func (m *memory) load(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memory) save(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *memory) clear() error {
	m.data = make(map[string][]byte)
	return nil
}

func (m *memory) close() error {
	return nil
}
