package main

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"

	"github.com/ndlib/arbor/adapter"
	"github.com/ndlib/arbor/resource"
)

// splitBucketPrefix will take a path and separate the bucket name from a prefix, if any.
// It makes sure the prefix returned is either empty or ends with a slash "/".
//
// examples:
//
//	"" -> ("", "")
//	"bucket" -> ("bucket", "")
//	"bucket/and/a/prefix" -> ("bucket", "and/a/prefix/")
func splitBucketPrefix(location string) (bucket, prefix string) {
	if location == "" {
		return
	}
	location = strings.TrimPrefix(location, "/")
	v := strings.SplitN(location, "/", 2)
	bucket = v[0]
	if len(v) > 1 {
		prefix = v[1]
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	return
}

// parselocation will create an appropriate adapter based on "location".
// If location is empty or "memory:", a memory adapter is returned.
// It understands the schemes "file:", "s3:", "ql:" and "mysql:". A location
// without a scheme is a directory.
//
//	ql:memory              QL database kept in memory
//	ql:/var/arbor/db.ql    QL database in a file
//	mysql:user@tcp(host)/db
//	s3://localhost:9000/bucket/prefix
func parselocation(location string, s3conf s3Config) (resource.Adapter, error) {
	if location == "" || location == "memory:" {
		return adapter.NewMemory(), nil
	}
	// these take everything after the scheme verbatim
	if rest, ok := strings.CutPrefix(location, "ql:"); ok {
		return adapter.NewQL(rest)
	}
	if rest, ok := strings.CutPrefix(location, "mysql:"); ok {
		return adapter.NewMySQL(rest)
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing location %s", location)
	}
	switch u.Scheme {
	case "", "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		path = filepath.Clean(path)
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, err
		}
		return adapter.NewFileSystem(path), nil
	case "s3":
		bucket, prefix := splitBucketPrefix(u.Path)
		if bucket == "" {
			return nil, errors.Errorf("no bucket name in location %s", location)
		}
		return adapter.NewS3(bucket, prefix, session.Must(session.NewSession(s3conf.awsConfig(u.Host)))), nil
	}
	return nil, errors.Errorf("unknown scheme in location %s", location)
}

// awsConfig builds the AWS configuration for an S3 location. A host in the
// location wins over the configured endpoint.
func (c s3Config) awsConfig(host string) *aws.Config {
	conf := &aws.Config{}
	endpoint := c.Endpoint
	if host != "" {
		endpoint = host
	}
	if c.Region != "" {
		conf.Region = aws.String(c.Region)
	}
	if endpoint != "" {
		conf.Endpoint = aws.String(endpoint)
		if conf.Region == nil {
			conf.Region = aws.String("us-east-1")
		}
		// disable SSL for local development
		if strings.Contains(endpoint, "localhost") {
			conf.DisableSSL = aws.Bool(true)
			conf.S3ForcePathStyle = aws.Bool(true)
		}
	}
	return conf
}
