package grammargen

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/node-types.schema.json
var nodeTypesSchema []byte

// ErrSchemaInvalid is returned when a node-types document does not match
// the node-types JSON schema.
var ErrSchemaInvalid = errors.New("grammargen: node types do not match schema")

// MarshalNodeTypes renders types as an indented node-types.json document.
func MarshalNodeTypes(types []gotreesitter.NodeTypeInfo) ([]byte, error) {
	data, err := json.MarshalIndent(types, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("grammargen: marshal node types: %w", err)
	}
	return append(data, '\n'), nil
}

// ValidateNodeTypesJSON checks a node-types.json document against the
// embedded JSON schema.
func ValidateNodeTypesJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(nodeTypesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("grammargen: validate node types: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return fmt.Errorf("%w: %s", ErrSchemaInvalid, strings.Join(msgs, "; "))
}
