package badger

import (
	"encoding/json"
	"fmt"
)

// Values are JSON encoded: rows are small and readable dumps make
// debugging a corrupted index practical.

// decode unmarshals a stored JSON value.
func decode(val []byte, v any) error {
	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("failed to decode index value: %w", err)
	}
	return nil
}
