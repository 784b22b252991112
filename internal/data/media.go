package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MediaStore keeps uploaded media (profile pictures, message photos and
// videos) in a GridFS bucket. Files are addressed by their path, e.g.
// "images/me-gmail-com_profile_picture.png".
type MediaStore struct {
	bucket  *mongo.GridFSBucket
	baseURL string
}

// NewMediaStore returns a MediaStore. baseURL is the public address of the
// ops HTTP server that serves /media/*path.
func NewMediaStore(bucket *mongo.GridFSBucket, baseURL string) *MediaStore {
	return &MediaStore{bucket: bucket, baseURL: baseURL}
}

// MediaURL builds the download URL for a stored path.
func MediaURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + strings.TrimLeft(path, "/")
}

// Put uploads data under path and returns its download URL. Re-uploading a
// path adds a new revision; downloads always serve the latest one.
func (m *MediaStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	if _, err := m.bucket.UploadFromStream(ctx, path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBlobUpload, err)
	}
	return m.URL(ctx, path)
}

// URL resolves the download URL of an existing path.
func (m *MediaStore) URL(ctx context.Context, path string) (string, error) {
	cursor, err := m.bucket.Find(ctx, bson.M{"filename": path})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBlobURL, err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return "", fmt.Errorf("%w: %w", ErrBlobURL, ErrNotFound)
	}
	return MediaURL(m.baseURL, path), nil
}

// Open streams the latest revision stored under path.
func (m *MediaStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	stream, err := m.bucket.OpenDownloadStreamByName(ctx, path)
	if err != nil {
		if errors.Is(err, mongo.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stream, nil
}
