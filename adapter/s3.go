package adapter

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/facebookgo/clock"
	raven "github.com/getsentry/raven-go"
	"github.com/rs/zerolog"

	"github.com/ndlib/arbor/logging"
	"github.com/ndlib/arbor/pathmatch"
	"github.com/ndlib/arbor/resource"
)

// A S3 adapter keeps a resource tree in an S3 bucket. The properties of the
// resource at path "/a/b" are kept in the object Prefix+"a/b/"+DataName, so
// the children of a resource can be found with a delimited listing.
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	svc    s3iface.S3API
	Bucket string
	Prefix string
	exists *existcache // remembers which keys exist
	log    zerolog.Logger
}

var (
	_ resource.Adapter = &S3{}
)

// the most keys a single DeleteObjects call may take
const maxDeleteBatch = 1000

// NewS3 creates a new S3 adapter. It will use the given bucket and will
// prepend prefix to all keys. This is to allow for a bucket to be used for
// more than one tree. The authorization method and credentials in the session
// are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return NewS3Client(s3.New(awsSession), bucket, prefix, nil)
}

// NewS3Client is like NewS3 but takes the S3 client to use, and the clock
// used to expire the existence cache. A nil clock means the wall clock.
func NewS3Client(svc s3iface.S3API, bucket, prefix string, c clock.Clock) *S3 {
	return &S3{
		svc:    svc,
		Bucket: bucket,
		Prefix: prefix,
		exists: newExistCache(c),
		log: logging.Get("s3").With().
			Str("bucket", bucket).
			Str("prefix", prefix).
			Logger(),
	}
}

// ValidPath implements resource.Adapter.
func (s *S3) ValidPath(path string) bool {
	return ValidPath(path)
}

// dirPrefix returns the key prefix shared by path and all its descendants.
func (s *S3) dirPrefix(path string) string {
	if pathmatch.IsRoot(path) {
		return s.Prefix
	}
	return s.Prefix + path[1:] + "/"
}

// key returns the object holding the properties of path.
func (s *S3) key(path string) string {
	return s.dirPrefix(path) + DataName
}

// pathOf is the inverse of key. It returns false for keys which are not
// properties objects.
func (s *S3) pathOf(key string) (string, bool) {
	rest := strings.TrimPrefix(key, s.Prefix)
	if rest == DataName {
		return pathmatch.Root, true
	}
	if !strings.HasSuffix(rest, "/"+DataName) {
		return "", false
	}
	return pathmatch.Root + strings.TrimSuffix(rest, "/"+DataName), true
}

// Get downloads the properties of path.
func (s *S3) Get(path string) (*resource.Data, error) {
	key := s.key(path)
	if exists, ok := s.exists.Known(key); ok && !exists {
		return nil, nil
	}
	out, err := s.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if isMissing(err) {
		s.exists.Set(key, false)
		return nil, nil
	} else if err != nil {
		s.report(err, "get", key)
		return nil, err
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	s.exists.Set(key, true)
	return decode(path, b)
}

// Children lists the common prefixes one level under path and loads each
// one that holds a resource.
func (s *S3) Children(path string) ([]*resource.Data, error) {
	prefix := s.dirPrefix(path)
	var names []string
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, cp := range page.CommonPrefixes {
				name := strings.TrimSuffix(strings.TrimPrefix(aws.StringValue(cp.Prefix), prefix), "/")
				names = append(names, name)
			}
			return !lastpage
		})
	if err != nil {
		s.report(err, "children", prefix)
		return nil, err
	}
	var result []*resource.Data
	for _, name := range names {
		child := pathmatch.Join(path, name)
		if !ValidPath(child) {
			continue
		}
		d, err := s.Get(child)
		if err != nil {
			return nil, err
		}
		if d != nil {
			result = append(result, d)
		}
	}
	return result, nil
}

// Store uploads the properties of d. A HEAD request, answered from the
// cache when possible, decides whether this creates the resource.
func (s *S3) Store(d *resource.Data) (bool, error) {
	b, err := encode(d)
	if err != nil {
		return false, err
	}
	key := s.key(d.Path())
	existed, err := s.exists.Get(key, s.stat)
	if err != nil {
		return false, err
	}
	_, err = s.svc.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.report(err, "store", key)
		return false, err
	}
	s.exists.Set(key, true)
	return !existed, nil
}

// stat implements the actual HEAD request to s3.
func (s *S3) stat(key string) (bool, error) {
	_, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if isMissing(err) {
		return false, nil
	}
	return err == nil, err
}

// DeleteRecursive removes every object under the prefix of path. It is not
// an error to delete something that doesn't exist.
func (s *S3) DeleteRecursive(path string) error {
	prefix := s.dirPrefix(path)
	var batch []*s3.ObjectIdentifier
	var err error
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := s.svc.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: aws.String(s.Bucket),
			Delete: &s3.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		batch = batch[:0]
		if err != nil {
			return err
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("S3 delete %s: %s %s",
				aws.StringValue(e.Key), aws.StringValue(e.Code), aws.StringValue(e.Message))
		}
		return nil
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	}
	lerr := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				batch = append(batch, &s3.ObjectIdentifier{Key: item.Key})
				if len(batch) == maxDeleteBatch {
					if err = flush(); err != nil {
						return false
					}
				}
			}
			return !lastpage
		})
	if err == nil {
		err = lerr
	}
	if err == nil {
		err = flush()
	}
	s.exists.ForgetPrefix(prefix)
	if err != nil {
		s.report(err, "delete", prefix)
		return err
	}
	s.exists.Set(s.key(path), false)
	return nil
}

// Query lists every properties object under Prefix and yields the ones
// which match. The listing runs in its own goroutine and stops when the
// iterator is closed.
func (s *S3) Query(expression, language string) (resource.Iterator, error) {
	m, err := compileQuery(expression, language)
	if m == nil || err != nil {
		return nil, err
	}
	out := make(chan *resource.Data)
	done := make(chan struct{})
	go func() {
		defer close(out)
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(s.Bucket),
			Prefix: aws.String(s.Prefix),
		}
		err := s.svc.ListObjectsV2Pages(input,
			func(page *s3.ListObjectsV2Output, lastpage bool) bool {
				for _, item := range page.Contents {
					path, ok := s.pathOf(aws.StringValue(item.Key))
					if !ok || !ValidPath(path) {
						continue
					}
					d, err := s.Get(path)
					if err != nil || d == nil {
						continue
					}
					select {
					case out <- d:
					case <-done:
						return false
					}
				}
				return !lastpage
			})
		if err != nil {
			// we have no other way of passing this error back
			s.report(err, "query", s.Prefix)
		}
	}()
	return filter(chanIterator(out, done), m), nil
}

func (s *S3) report(err error, op, key string) {
	s.log.Error().Err(err).Str("op", op).Str("key", key).Msg("S3")
	raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
}

// isMissing reports whether err is S3 saying an object does not exist.
func isMissing(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
