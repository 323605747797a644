// Package upload validates incoming files and stores them in object storage.
package upload

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	KindImages    Kind = "images"
	KindDocuments Kind = "documents"
	KindVideos    Kind = "videos"
)

const (
	MaxFilesPerField = 10
	sniffLen         = 512
	maxBaseNameLen   = 50
)

var (
	ErrUnknownKind     = errors.New("unknown upload field")
	ErrTooManyFiles    = errors.New("too many files")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrObjectNotFound  = errors.New("object not found")
)

// Rule is the size limit and content-type allow-list of one kind.
type Rule struct {
	MaxBytes     int64
	AllowedTypes []string
}

func (r Rule) allows(contentType string) bool {
	for _, t := range r.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

var Rules = map[Kind]Rule{
	KindImages: {
		MaxBytes:     5 << 20,
		AllowedTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"},
	},
	KindDocuments: {
		MaxBytes: 10 << 20,
		AllowedTypes: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"image/jpeg", "image/jpg", "image/png",
		},
	},
	KindVideos: {
		MaxBytes:     50 << 20,
		AllowedTypes: []string{"video/mp4", "video/mpeg", "video/quicktime", "video/webm"},
	},
}

var typeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// generic sniff results that say nothing about the real format
var genericTypes = map[string]bool{
	"application/octet-stream":  true,
	"application/zip":           true,
	"text/plain; charset=utf-8": true,
}

// formats http.DetectContentType cannot identify
var unsniffable = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"video/quicktime": true,
	"video/mpeg":      true,
}

// File is one incoming file.
type File struct {
	Kind         Kind
	FileName     string
	DeclaredType string
	Size         int64
	Content      io.Reader
}

// StoredFile describes a file after it was written to storage.
type StoredFile struct {
	Kind        Kind      `json:"kind"`
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Object is a stored file opened for reading.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// Storage is the object store behind uploads.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*Object, error)
}

// Error carries the offending file name with a sentinel cause.
type Error struct {
	FileName string
	Err      error
	Detail   string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v (%s)", e.FileName, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.FileName, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Inspect checks size and content type of f. It returns the detected type
// and a reader that still yields the full content.
func Inspect(f File) (string, io.Reader, error) {
	rule, ok := Rules[f.Kind]
	if !ok {
		return "", nil, &Error{FileName: f.FileName, Err: ErrUnknownKind, Detail: string(f.Kind)}
	}
	if f.Size > rule.MaxBytes {
		return "", nil, &Error{FileName: f.FileName, Err: ErrFileTooLarge, Detail: fmt.Sprintf("limit is %d MB", rule.MaxBytes>>20)}
	}

	br := bufio.NewReaderSize(f.Content, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, fmt.Errorf("read %s: %w", f.FileName, err)
	}

	detected := http.DetectContentType(head)
	if !rule.allows(detected) {
		if !genericTypes[detected] {
			return "", nil, &Error{FileName: f.FileName, Err: ErrUnsupportedType, Detail: detected}
		}
		// container formats (doc, docx, mov, mpeg) sniff as generic; trust the extension
		byExt, known := typeByExt[strings.ToLower(filepath.Ext(f.FileName))]
		if !known {
			byExt = strings.ToLower(strings.TrimSpace(f.DeclaredType))
		}
		if !unsniffable[byExt] || !rule.allows(byExt) {
			return "", nil, &Error{FileName: f.FileName, Err: ErrUnsupportedType, Detail: f.DeclaredType}
		}
		detected = byExt
	}
	return detected, br, nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// ObjectKey builds "<kind>/<name>_<unix-ms>_<random>.<ext>".
func ObjectKey(kind Kind, fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-")
	if len(base) > maxBaseNameLen {
		base = base[:maxBaseNameLen]
	}
	if base == "" {
		base = "file"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s_%d_%s%s", kind, base, now.UnixMilli(), random, ext)
}

type Service struct {
	storage Storage
	metrics *metrics.MetricsManager
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(storage Storage, mm *metrics.MetricsManager, log *logger.Logger) *Service {
	return &Service{storage: storage, metrics: mm, logger: log.Named("UploadService"), now: time.Now}
}

// Store validates every file before writing any of them. If a write fails,
// files already written in this call are removed.
func (s *Service) Store(ctx context.Context, files []File) ([]StoredFile, error) {
	perKind := map[Kind]int{}
	type checked struct {
		file        File
		contentType string
		body        io.Reader
	}
	ready := make([]checked, 0, len(files))

	for _, f := range files {
		perKind[f.Kind]++
		if perKind[f.Kind] > MaxFilesPerField {
			return nil, &Error{FileName: f.FileName, Err: ErrTooManyFiles, Detail: fmt.Sprintf("at most %d %s", MaxFilesPerField, f.Kind)}
		}
		ct, body, err := Inspect(f)
		if err != nil {
			s.logger.Info("Upload rejected", zap.String("file", f.FileName), zap.String("kind", string(f.Kind)), zap.Error(err))
			return nil, err
		}
		ready = append(ready, checked{file: f, contentType: ct, body: body})
	}

	stored := make([]StoredFile, 0, len(ready))
	for _, c := range ready {
		now := s.now().UTC()
		key := ObjectKey(c.file.Kind, c.file.FileName, now)
		url, err := s.storage.Put(ctx, key, c.body, c.file.Size, c.contentType)
		if err != nil {
			s.logger.Error("Failed to store file", zap.String("key", key), zap.Error(err))
			s.rollback(ctx, stored)
			return nil, fmt.Errorf("store %s: %w", c.file.FileName, err)
		}
		stored = append(stored, StoredFile{
			Kind:        c.file.Kind,
			URL:         url,
			Key:         key,
			FileName:    c.file.FileName,
			ContentType: c.contentType,
			Size:        c.file.Size,
			UploadedAt:  now,
		})
		if s.metrics != nil {
			s.metrics.UploadsTotal.WithLabelValues(string(c.file.Kind)).Inc()
		}
	}
	s.logger.Info("Files stored", zap.Int("count", len(stored)))
	return stored, nil
}

func (s *Service) rollback(ctx context.Context, stored []StoredFile) {
	keys := make([]string, 0, len(stored))
	for _, f := range stored {
		keys = append(keys, f.Key)
	}
	s.Remove(ctx, keys)
}

// Remove deletes objects, logging failures instead of returning them.
func (s *Service) Remove(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.storage.Remove(ctx, key); err != nil {
			s.logger.Warn("Failed to remove stored file", zap.String("key", key), zap.Error(err))
		}
	}
}

// Open returns a stored object for streaming.
func (s *Service) Open(ctx context.Context, key string) (*Object, error) {
	return s.storage.Get(ctx, key)
}
