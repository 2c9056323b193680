package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/pkg/storage"
)

// StorageUploader pushes synthesized audio to object storage.
type StorageUploader struct {
	client storage.Client
}

// NewStorageUploader returns an Uploader backed by an object storage client.
func NewStorageUploader(client storage.Client) *StorageUploader {
	return &StorageUploader{client: client}
}

func (u *StorageUploader) Upload(ctx context.Context, localPath, key string) (*model.UploadRecord, error) {
	obj, err := u.client.Upload(ctx, localPath, key)
	if err != nil {
		return nil, eris.Wrapf(err, "upload: %s", key)
	}
	return &model.UploadRecord{URL: obj.URL, Key: obj.Key}, nil
}
