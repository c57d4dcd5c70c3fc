package main

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ndlib/arbor/resource"
)

func TestParseProps(t *testing.T) {
	var tests = []struct {
		input  []string
		output map[string]interface{}
		ok     bool
	}{
		{nil, map[string]interface{}{}, true},
		{[]string{"a=b"}, map[string]interface{}{"a": "b"}, true},
		{[]string{"n=12", "f=true"}, map[string]interface{}{"n": 12.0, "f": true}, true},
		{[]string{`s="quoted"`}, map[string]interface{}{"s": "quoted"}, true},
		{[]string{"list=[1,2]"}, map[string]interface{}{"list": []interface{}{1.0, 2.0}}, true},
		{[]string{"a=b=c"}, map[string]interface{}{"a": "b=c"}, true},
		{[]string{"a="}, map[string]interface{}{"a": ""}, true},
		{[]string{"=b"}, nil, false},
		{[]string{"novalue"}, nil, false},
	}
	for _, test := range tests {
		result, err := parseProps(test.input)
		if (err == nil) != test.ok {
			t.Errorf("%v: Received error %v", test.input, err)
			continue
		}
		if test.ok && !reflect.DeepEqual(result, test.output) {
			t.Errorf("%v: Received %v, expected %v", test.input, result, test.output)
		}
	}
}

func TestPrintResource(t *testing.T) {
	var buf bytes.Buffer
	d := resource.NewData("/a/b", map[string]interface{}{
		"title": "x",
		"n":     json.Number("3"),
		"tags":  []interface{}{"p", "q"},
	})
	printresource(&buf, d)
	expected := "---\nPath:    /a/b\nn:       3\ntags:    [\"p\",\"q\"]\ntitle:   \"x\"\n"
	if buf.String() != expected {
		t.Errorf("Received %q, expected %q", buf.String(), expected)
	}
}
