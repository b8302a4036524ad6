package app

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodePayload converts a generic JSON tree (as returned by the fetch coordinator)
// into one of the typed API views. Numeric strings and floats are coerced.
func DecodePayload(payload any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create payload decoder: %w", err)
	}

	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	return nil
}
