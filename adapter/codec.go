package adapter

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/ndlib/arbor/resource"
)

// encode serializes the properties of d. Every adapter stores properties as
// a JSON object, so numbers come back as float64.
func encode(d *resource.Data) ([]byte, error) {
	return json.Marshal(d.Properties())
}

// decode rebuilds the resource at path from the output of encode.
func decode(path string, b []byte) (*resource.Data, error) {
	var props map[string]interface{}
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return resource.NewData(path, props), nil
}
