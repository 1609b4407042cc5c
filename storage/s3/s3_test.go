package s3_test

import (
	"context"
	"errors"
	"io"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/storage"
	"github.com/cladams7905/zencourt-sub006/storage/s3"
)

type fakePutter struct {
	in   *awss3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &awss3.PutObjectOutput{}, nil
}

func TestUploadFile(t *testing.T) {
	api := &fakePutter{}
	s := s3.NewWithAPI(api, "clips", s3.WithPublicBaseURL("https://cdn.example.com/"))

	u, err := s.UploadFile(context.Background(), &storage.UploadInput{
		Key:         "videos/video 1/job-1.mp4",
		Body:        []byte("mp4"),
		ContentType: "video/mp4",
		Metadata:    map[string]string{"job-id": "job-1"},
	})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	if u != "https://cdn.example.com/videos/video%201/job-1.mp4" {
		t.Errorf("url = %q", u)
	}
	if *api.in.Bucket != "clips" || *api.in.Key != "videos/video 1/job-1.mp4" {
		t.Errorf("bucket/key = %s/%s", *api.in.Bucket, *api.in.Key)
	}
	if *api.in.ContentType != "video/mp4" {
		t.Errorf("ContentType = %q", *api.in.ContentType)
	}
	if string(api.body) != "mp4" {
		t.Errorf("body = %q", api.body)
	}
	if api.in.Metadata["job-id"] != "job-1" {
		t.Errorf("metadata = %v", api.in.Metadata)
	}
}

func TestUploadFile_Errors(t *testing.T) {
	s := s3.NewWithAPI(&fakePutter{err: errors.New("access denied")}, "clips")

	if _, err := s.UploadFile(context.Background(), &storage.UploadInput{Key: "k", Body: []byte("x")}); err == nil {
		t.Error("expected put error")
	}
	if _, err := s.UploadFile(context.Background(), &storage.UploadInput{}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := s3.New(context.Background(), zencourt.StorageConfig{}); !errors.Is(err, zencourt.ErrNoStorage) {
		t.Errorf("err = %v, want ErrNoStorage", err)
	}
}
