package server

import (
	"encoding/json"
	"io"

	"github.com/antonholmquist/jason"
	"github.com/pkg/errors"

	"github.com/ndlib/arbor/resource"
)

// batchOp is one operation of a batch request.
type batchOp struct {
	op    string
	path  string
	props map[string]interface{}
}

// parseBatch decodes a batch request body. Properties are checked to be
// JSON objects, and numbers in them become int64 when they are integers
// and float64 otherwise.
func parseBatch(r io.Reader) ([]batchOp, error) {
	v, err := jason.NewValueFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "batch")
	}
	list, err := v.ObjectArray()
	if err != nil {
		return nil, errors.New("batch: expected an array of objects")
	}
	var result []batchOp
	for i, obj := range list {
		var op batchOp
		op.op, err = obj.GetString("op")
		if err != nil {
			return nil, errors.Errorf("batch: operation %d has no op", i)
		}
		op.path, err = obj.GetString("path")
		if err != nil {
			return nil, errors.Errorf("batch: operation %d has no path", i)
		}
		switch op.op {
		case "create", "update":
			if pv, err := obj.GetValue("properties"); err == nil {
				pobj, err := pv.Object()
				if err != nil {
					return nil, errors.Errorf("batch: operation %d properties is not an object", i)
				}
				op.props = plain(pobj.Interface()).(map[string]interface{})
			}
		case "delete":
		default:
			return nil, errors.Errorf("batch: operation %d has unknown op %q", i, op.op)
		}
		result = append(result, op)
	}
	return result, nil
}

// plain replaces the json.Number values in v by int64 or float64.
func plain(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case map[string]interface{}:
		for k := range x {
			x[k] = plain(x[k])
		}
		return x
	case []interface{}:
		for i := range x {
			x[i] = plain(x[i])
		}
		return x
	}
	return v
}

func (op batchOp) apply(st *resource.Store) error {
	var err error
	switch op.op {
	case "create":
		_, err = st.Create(op.path, op.props)
	case "update":
		_, err = st.Update(op.path, op.props)
	case "delete":
		err = st.Delete(op.path)
	}
	return err
}
