package objectstore

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// DefaultBucket is the public requester-pays Sentinel-2 L2A bucket.
const DefaultBucket = "sentinel-s2-l2a"

// S3Fetcher downloads objects from a requester-pays S3 bucket.
type S3Fetcher struct {
	Bucket     string
	downloader *manager.Downloader
}

// NewS3Fetcher builds a fetcher from the default AWS credential chain.
func NewS3Fetcher(ctx context.Context, bucket, region string) (*S3Fetcher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewS3FetcherFromClient(s3.NewFromConfig(cfg), bucket), nil
}

func NewS3FetcherFromClient(client manager.DownloadAPIClient, bucket string) *S3Fetcher {
	return &S3Fetcher{Bucket: bucket, downloader: manager.NewDownloader(client)}
}

func (s *S3Fetcher) Fetch(ctx context.Context, key, dst string) error {
	input := &s3.GetObjectInput{
		Bucket:       aws.String(s.Bucket),
		Key:          aws.String(key),
		RequestPayer: types.RequestPayerRequester,
	}

	err := writeAtomically(dst, func(f *os.File) error {
		_, err := s.downloader.Download(ctx, f, input)
		return err
	})
	if err != nil {
		return &FetchError{Key: key, NotFound: isNotFound(err), Err: err}
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
