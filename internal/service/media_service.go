package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/repository"
)

// FileStorage abstracts media upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// MediaService stores audio, video and image assets for items that use
// media-based schemes, and attaches the stored URL to the item.
type MediaService interface {
	Attach(ctx context.Context, instanceID string, file *multipart.FileHeader) (dto.MediaUploadResponse, error)
}

type mediaService struct {
	storage FileStorage
	items   repository.ItemRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewMediaService constructs the media service.
func NewMediaService(storage FileStorage, items repository.ItemRepository, maxSizeMB int, logger zerolog.Logger) MediaService {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	return &mediaService{
		storage: storage,
		items:   items,
		logger:  logger.With().Str("component", "media_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/labelgrid/labelgrid-api/internal/service/media"),
	}
}

func (s *mediaService) Attach(ctx context.Context, instanceID string, file *multipart.FileHeader) (dto.MediaUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "media.attach")
	defer span.End()

	span.SetAttributes(attribute.String("media.instance_id", instanceID))

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.MediaUploadResponse{}, err
	}

	if _, err := s.items.GetByInstanceID(ctx, instanceID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown item")
		return dto.MediaUploadResponse{}, fmt.Errorf("item %s: %w", instanceID, ErrNotFound)
	}

	if file.Size > s.maxSize {
		err := fmt.Errorf("file exceeds %d bytes: %w", s.maxSize, ErrUnsupportedMedia)
		span.RecordError(err)
		span.SetStatus(codes.Error, "payload too large")
		return dto.MediaUploadResponse{}, err
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.MediaUploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.MediaUploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		err := fmt.Errorf("file exceeds %d bytes: %w", s.maxSize, ErrUnsupportedMedia)
		span.RecordError(err)
		span.SetStatus(codes.Error, "payload too large")
		return dto.MediaUploadResponse{}, err
	}

	mediaType, err := mediaKind(mimetype.Detect(buf.Bytes()).String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.MediaUploadResponse{}, err
	}
	span.SetAttributes(attribute.String("media.type", mediaType))

	url, err := s.storage.Upload(ctx, mediaFileName(instanceID, file.Filename), bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.MediaUploadResponse{}, err
	}

	if err := s.items.SetMedia(ctx, instanceID, url, mediaType); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.MediaUploadResponse{}, err
	}

	s.logger.Info().Str("instance_id", instanceID).Str("media_type", mediaType).Msg("media attached to item")
	span.SetStatus(codes.Ok, "stored")

	return dto.MediaUploadResponse{
		InstanceID: instanceID,
		MediaURL:   url,
		MediaType:  mediaType,
	}, nil
}

// mediaKind collapses a detected MIME type into the coarse media class
// stored on the item. Only audio, video and image payloads are accepted.
func mediaKind(mime string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(lower, "audio/"):
		return "audio", nil
	case strings.HasPrefix(lower, "video/"):
		return "video", nil
	case strings.HasPrefix(lower, "image/"):
		return "image", nil
	default:
		return "", fmt.Errorf("mime type %s: %w", lower, ErrUnsupportedMedia)
	}
}

func mediaFileName(instanceID, original string) string {
	base := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(instanceID))
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("media-%d", time.Now().Unix())
	}

	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
