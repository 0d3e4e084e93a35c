package domain

// Zero overwrites key material in place. Nil and empty slices are ignored.
func Zero(keys ...[]byte) {
	for _, b := range keys {
		clear(b)
	}
}

// ZeroMap zeroes every tenant key in keys and empties the map.
func ZeroMap(keys map[string][]byte) {
	for tenantID, b := range keys {
		clear(b)
		delete(keys, tenantID)
	}
}

// CloneKey copies key material so the copy can be zeroed without touching b.
func CloneKey(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
