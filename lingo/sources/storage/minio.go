package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"time"

	"lingo/lingo/config"
	"lingo/lingo/utils/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOClient struct {
	client *minio.Client
	bucket string
}

// TranslationObject is the archived form of a finished translation.
type TranslationObject struct {
	MessageID   string    `json:"message_id"`
	RoomID      string    `json:"room_id"`
	Content     string    `json:"content"`
	Translation string    `json:"translation"`
	ArchivedAt  time.Time `json:"archived_at"`
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	// Use insecure for local (no HTTPS)
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinIOClient{client: client, bucket: cfg.MinIOBucket}, nil
}

func TranslationKey(messageID string) string {
	return path.Join("translations", messageID+".json")
}

// ArchiveTranslation stores the finished translation and returns its key.
func (m *MinIOClient) ArchiveTranslation(ctx context.Context, messageID, roomID, content, translation string) (string, error) {
	defer logging.LogDuration(ctx, "minio_archive_translation")()

	data, err := json.Marshal(TranslationObject{
		MessageID:   messageID,
		RoomID:      roomID,
		Content:     content,
		Translation: translation,
		ArchivedAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	key := TranslationKey(messageID)
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}
	return key, nil
}
