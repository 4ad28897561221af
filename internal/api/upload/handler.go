package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ai-doc-assistant/config"
	"ai-doc-assistant/internal/database"
	"ai-doc-assistant/internal/database/model"
	"ai-doc-assistant/pkg/apperror"
	s3client "ai-doc-assistant/pkg/s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v3"
)

type uploadResponse struct {
	DocID    int64          `json:"doc_id"`
	Sha256   string         `json:"sha256"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HandleUpload receives a multipart file plus optional form metadata
// (department, year, tags, priority), stores the file content-addressed by
// its sha256 and creates the document row. Ingestion is a separate call.
func HandleUpload(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.BadRequest(config.ModuleUpload, c, "file is required")
	}
	if fh == nil || fh.Size == 0 {
		return apperror.BadRequest(config.ModuleUpload, c, "empty file")
	}

	meta, err := buildUploadMetadata(
		c.FormValue("department"),
		c.FormValue("year"),
		c.FormValue("tags"),
		c.FormValue("priority"),
		fh,
	)
	if err != nil {
		return apperror.FromError(config.ModuleUpload, c, err)
	}

	file, err := fh.Open()
	if err != nil {
		return apperror.BadRequest(config.ModuleUpload, c, "cannot open file")
	}
	defer file.Close()

	db, err := database.GetDB()
	if err != nil {
		return apperror.InternalError(config.ModuleUpload, c, err)
	}

	hasher := sha256.New()
	tee := io.TeeReader(file, hasher)

	useS3 := strings.TrimSpace(config.Cfg.S3.Bucket) != ""

	var storedPath, shaHex string
	if useS3 {
		storedPath, shaHex, err = storeToS3(tee, fh, hasher)
	} else {
		storedPath, shaHex, err = storeToLocal(tee, fh, hasher)
	}
	if err != nil {
		return apperror.InternalError(config.ModuleUpload, c, err)
	}

	var metaJSON *string
	if len(meta) > 0 {
		raw, mErr := json.Marshal(meta)
		if mErr != nil {
			return apperror.InternalError(config.ModuleUpload, c, mErr)
		}
		s := string(raw)
		metaJSON = &s
	}

	original := fh.Filename
	now := time.Now()
	doc := model.Document{
		OriginalFilename: &original,
		FilePath:         &storedPath,
		Sha256:           &shaHex,
		Metadata:         metaJSON,
		Status:           "uploaded",
		UploadedAt:       &now,
	}
	if err := db.Create(&doc).Error; err != nil {
		return apperror.InternalError(config.ModuleUpload, c, err)
	}

	return apperror.Success(config.ModuleUpload, c, apperror.SuccessMessage{
		Message:    "file uploaded",
		TrackingID: trackingID,
		Data:       uploadResponse{DocID: doc.ID, Sha256: shaHex, Metadata: meta},
	})
}

// buildUploadMetadata lifts the form fields plus the file's own attributes
// into the metadata map the chunks are filtered on later. Year is stored
// numeric so range filters work against it; priority is a categorical label
// (low/medium/high) stored as the string it arrives as; tags is a
// comma-separated list. Filename, file type and size ride along so chunks are
// filterable by their source file.
func buildUploadMetadata(department, year, tags, priority string, fh *multipart.FileHeader) (map[string]any, error) {
	meta := map[string]any{}

	if v := strings.TrimSpace(department); v != "" {
		meta["department"] = v
	}
	if v := strings.TrimSpace(year); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return nil, apperror.Errorf(apperror.KindMalformed, "upload", "year must be an integer, got %q", v)
		}
		meta["year"] = y
	}
	if v := strings.TrimSpace(priority); v != "" {
		meta["priority"] = v
	}
	if v := strings.TrimSpace(tags); v != "" {
		var list []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				list = append(list, t)
			}
		}
		if len(list) > 0 {
			meta["tags"] = list
		}
	}
	meta["filename"] = fh.Filename
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		meta["file_type"] = ct
	}
	meta["file_size"] = fh.Size
	return meta, nil
}

func storeToLocal(r io.Reader, fh *multipart.FileHeader, hasher hash.Hash) (string, string, error) {
	baseDir := filepath.Join("storage", "documents")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create storage dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(baseDir, "upload-*.tmp")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return "", "", fmt.Errorf("write file: %w", err)
	}

	shaHex := hex.EncodeToString(hasher.Sum(nil))
	finalPath := filepath.Join(baseDir, shaHex+storedExt(fh.Filename))
	if err := os.Rename(tmpFile.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("finalize file: %w", err)
	}
	return finalPath, shaHex, nil
}

func storeToS3(r io.Reader, fh *multipart.FileHeader, hasher hash.Hash) (string, string, error) {
	client, err := s3client.GetClient()
	if err != nil {
		return "", "", fmt.Errorf("s3 client: %w", err)
	}

	ctx := context.Background()
	bucket := config.Cfg.S3.Bucket
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if _, crtErr := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); crtErr != nil {
			var owned *s3types.BucketAlreadyOwnedByYou
			if !errors.As(crtErr, &owned) {
				return "", "", fmt.Errorf("create bucket: %w", crtErr)
			}
		}
	}

	// The body is needed twice (hash, then upload); buffer through a temp file.
	tmp, err := os.CreateTemp("", "s3-upload-*.tmp")
	if err != nil {
		return "", "", fmt.Errorf("tempfile: %w", err)
	}
	defer func() {
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", "", fmt.Errorf("stream copy: %w", err)
	}

	shaHex := hex.EncodeToString(hasher.Sum(nil))
	key := "documents/" + shaHex + storedExt(fh.Filename)

	if _, err := tmp.Seek(0, 0); err != nil {
		return "", "", fmt.Errorf("seek: %w", err)
	}
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   tmp,
	}); err != nil {
		return "", "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), shaHex, nil
}

func storedExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	return ext
}
