package parser

import (
	"errors"

	"github.com/pelletier/go-toml/v2"
)

// parseTOMLBytes parses a TOML template document. Variables and rules are
// written as arrays of tables ([[variables]], [[rules]]).
func parseTOMLBytes(data []byte) (*templateDoc, error) {
	var doc templateDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// tomlErrorPosition returns the row and column of a TOML decode error,
// or 1, 1 when the error carries no position.
func tomlErrorPosition(err error) (int, int) {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Position()
	}
	return 1, 1
}
