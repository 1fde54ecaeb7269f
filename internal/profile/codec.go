package profile

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
)

// Encode serializes p as JSON, indented when pretty is set.
func Encode(p models.Profile, pretty bool) ([]byte, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	return shared.MarshalJSON(p, pretty)
}

// Decode parses and validates a serialized profile.
func Decode(data []byte) (*models.Profile, error) {
	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks required fields, item ids and mood ranges.
func Validate(p models.Profile) error {
	if err := shared.ValidateStruct(p); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return nil
}
