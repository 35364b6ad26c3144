package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/skillarena/backend/config"
	"github.com/skillarena/backend/errs"
)

const uploadURLExpiry = 15 * time.Minute

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ImageUpload is a one-time PUT target and the URL the image will be served from.
type ImageUpload struct {
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectPresigner is the part of s3.PresignClient ImageUploads uses.
type ObjectPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error)
}

// PresignedRequest mirrors the fields of v4.PresignedHTTPRequest callers need.
type PresignedRequest struct {
	URL string
}

type s3Presigner struct {
	client *s3.PresignClient
}

func (p s3Presigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	req, err := p.client.PresignPutObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedRequest{URL: req.URL}, nil
}

// ImageUploads hands out presigned S3 URLs for contest and profile images.
type ImageUploads struct {
	presigner ObjectPresigner
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewImageUploads returns nil when no bucket is configured.
func NewImageUploads(ctx context.Context, region string, cfg config.Images) (*ImageUploads, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.NewConfigError("AWS", err)
	}
	presigner := s3Presigner{client: s3.NewPresignClient(s3.NewFromConfig(awsCfg))}

	publicURL := cfg.PublicBaseURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, awsCfg.Region)
	}
	return NewImageUploadsWithPresigner(presigner, cfg.Bucket, publicURL), nil
}

func NewImageUploadsWithPresigner(p ObjectPresigner, bucket, publicBaseURL string) *ImageUploads {
	return &ImageUploads{
		presigner: p,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicBaseURL, "/"),
		now:       time.Now,
	}
}

// Presign reserves a fresh object key under folder for ownerID.
func (u *ImageUploads) Presign(ctx context.Context, ownerID uuid.UUID, folder, contentType string) (ImageUpload, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return ImageUpload{}, errs.NewValidationError("contentType", "must be one of image/png, image/jpeg, image/webp, image/gif")
	}
	switch folder {
	case "contests", "avatars":
	default:
		return ImageUpload{}, errs.NewValidationError("folder", "must be contests or avatars")
	}

	key := fmt.Sprintf("%s/%s/%s.%s", folder, ownerID, uuid.NewString(), ext)
	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadURLExpiry))
	if err != nil {
		return ImageUpload{}, errs.NewUpstreamError("s3", err)
	}

	return ImageUpload{
		UploadURL: req.URL,
		PublicURL: u.publicURL + "/" + key,
		Key:       key,
		ExpiresAt: u.now().Add(uploadURLExpiry).UTC(),
	}, nil
}
