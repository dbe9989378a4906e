package digitalocean

import (
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"golang.org/x/net/context"
	"io"
	"net/http"
	"path"
)

var ErrNotFound = errors.New("object not found")

type Options struct {
	Key      string
	Secret   string
	Endpoint string
	Region   string
	Bucket   string
	// Prefix is prepended to every object key.
	Prefix string
}

type Spaces struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func NewSpaces(options Options) (*Spaces, error) {
	if options.Bucket == "" {
		return nil, errors.New("spaces bucket is required")
	}
	s3Config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(options.Key, options.Secret, ""),
		Endpoint:         aws.String(options.Endpoint),
		S3ForcePathStyle: aws.Bool(false),
		Region:           aws.String(options.Region),
	}
	newSession, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("spaces session: %w", err)
	}
	return newSpaces(s3.New(newSession), options.Bucket, options.Prefix), nil
}

func newSpaces(client s3iface.S3API, bucket, prefix string) *Spaces {
	return &Spaces{client: client, bucket: bucket, prefix: prefix}
}

func (s *Spaces) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Download opens the object stored under name. A missing object is ErrNotFound.
func (s *Spaces) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	input := s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	}
	getObject, err := s.client.GetObjectWithContext(ctx, &input)
	if err != nil {
		var requestFailure awserr.RequestFailure
		if errors.As(err, &requestFailure) && requestFailure.StatusCode() == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	return getObject.Body, nil
}

// Upload stores body under name as a private object.
func (s *Spaces) Upload(ctx context.Context, name string, body io.ReadSeeker, tags map[string]*string) error {
	object := s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key(name)),
		Body:     body,
		ACL:      aws.String("private"),
		Metadata: tags,
	}
	if _, err := s.client.PutObjectWithContext(ctx, &object); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}
