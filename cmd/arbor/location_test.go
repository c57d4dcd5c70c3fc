package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"

	"github.com/ndlib/arbor/adapter"
)

const (
	typeMemory = iota
	typeFileSystem
	typeS3
	typeSQL
	typeError
)

func TestSplitBucketPrefix(t *testing.T) {
	var table = []struct {
		location string
		bucket   string
		prefix   string
	}{
		{"", "", ""},
		{"rel/path", "rel", "path/"},
		{"/abs/path/", "abs", "path/"},
		{"/bucket", "bucket", ""},
		{"/bucket/prefix/", "bucket", "prefix/"},
		{"/bucket/prefix", "bucket", "prefix/"},
	}

	for _, row := range table {
		t.Log(row.location)
		bucket, prefix := splitBucketPrefix(row.location)
		if bucket != row.bucket {
			t.Error("expected bucket", row.bucket, "received", bucket)
		}
		if prefix != row.prefix {
			t.Error("expected prefix", row.prefix, "received", prefix)
		}
	}
}

func TestParseLocation(t *testing.T) {
	tmp := t.TempDir()
	var table = []struct {
		location string
		typ      int
		bucket   string
		prefix   string
	}{
		{"", typeMemory, "", ""},
		{"memory:", typeMemory, "", ""},
		{filepath.Join(tmp, "abs/path"), typeFileSystem, "", ""},
		{"file:" + filepath.Join(tmp, "file/path"), typeFileSystem, "", ""},
		{"s3:/bucket", typeS3, "bucket", ""},
		{"s3://localhost:9000/bucket/prefix/", typeS3, "bucket", "prefix/"},
		{"s3://localhost:9000/", typeError, "", ""},
		{"ql:memory", typeSQL, "", ""},
		{"ql:" + filepath.Join(tmp, "arbor.ql"), typeSQL, "", ""},
		{"ftp://example.com/x", typeError, "", ""},
	}

	for _, row := range table {
		t.Log(row.location)
		result, err := parselocation(row.location, s3Config{})
		if row.typ == typeError {
			if err == nil {
				t.Errorf("expected an error, received %#v", result)
			}
			continue
		}
		if err != nil {
			t.Errorf("received %s", err)
			continue
		}
		switch x := result.(type) {
		case *adapter.Memory:
			if row.typ != typeMemory {
				t.Errorf("unexpected received %#v", result)
			}
		case *adapter.FileSystem:
			if row.typ != typeFileSystem {
				t.Errorf("unexpected received %#v", result)
			}
		case *adapter.S3:
			if row.typ != typeS3 {
				t.Errorf("unexpected received %#v", result)
			}
			if x.Bucket != row.bucket {
				t.Error("expected bucket", row.bucket, "received", x.Bucket)
			}
			if x.Prefix != row.prefix {
				t.Error("expected prefix", row.prefix, "received", x.Prefix)
			}
		case *adapter.SQL:
			if row.typ != typeSQL {
				t.Errorf("unexpected received %#v", result)
			}
			x.Close()
		default:
			t.Errorf("unexpected received %#v", result)
		}
	}
	// the directory for a file location is created
	if _, err := os.Stat(filepath.Join(tmp, "file/path")); err != nil {
		t.Errorf("Received %s", err)
	}
}

func TestAWSConfig(t *testing.T) {
	var table = []struct {
		conf     s3Config
		host     string
		endpoint string
		region   string
		noSSL    bool
	}{
		{s3Config{}, "", "", "", false},
		{s3Config{}, "localhost:9000", "localhost:9000", "us-east-1", true},
		{s3Config{Endpoint: "s3.example.com", Region: "eu-west-1"}, "", "s3.example.com", "eu-west-1", false},
		{s3Config{Endpoint: "s3.example.com"}, "localhost:9000", "localhost:9000", "us-east-1", true},
	}
	for _, row := range table {
		c := row.conf.awsConfig(row.host)
		if aws.StringValue(c.Endpoint) != row.endpoint {
			t.Errorf("%v: received endpoint %q, expected %q", row, aws.StringValue(c.Endpoint), row.endpoint)
		}
		if aws.StringValue(c.Region) != row.region {
			t.Errorf("%v: received region %q, expected %q", row, aws.StringValue(c.Region), row.region)
		}
		if aws.BoolValue(c.DisableSSL) != row.noSSL {
			t.Errorf("%v: received DisableSSL %v", row, aws.BoolValue(c.DisableSSL))
		}
	}
}
