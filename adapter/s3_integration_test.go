//go:build s3
// +build s3

package adapter

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/uuid"

	"github.com/ndlib/arbor/adapter/adaptertest"
)

func getSession() *session.Session {
	// This config is for a local hosted Minio.
	s3Config := &aws.Config{
		Endpoint:         aws.String("http://localhost:9000"),
		Region:           aws.String("us-east-1"),
		DisableSSL:       aws.Bool(true),
		S3ForcePathStyle: aws.Bool(true),
	}
	return session.Must(session.NewSession(s3Config))
}

func TestS3Minio(t *testing.T) {
	s := NewS3("test", uuid.New().String()+"/", getSession())
	adaptertest.Run(t, s)
	if err := s.DeleteRecursive("/"); err != nil {
		t.Errorf("Received %s", err)
	}
}
