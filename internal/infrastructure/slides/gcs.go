package slides

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/repository"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

// GCSRepository lists slide images stored under a bucket prefix. The object
// name without extension is the slide id; the "title" metadata entry, when
// present, is its title. Slides are ordered by object name. An empty or
// unreachable bucket falls back to Fallback.
type GCSRepository struct {
	Client   *storage.Client
	Bucket   string
	Prefix   string
	Fallback repository.SlideRepository
	Logger   *logrus.Logger
}

func NewGCSRepository(client *storage.Client, bucket, prefix string, fallback repository.SlideRepository, logger *logrus.Logger) *GCSRepository {
	return &GCSRepository{Client: client, Bucket: bucket, Prefix: prefix, Fallback: fallback, Logger: logger}
}

func (r *GCSRepository) List(ctx context.Context) ([]entity.Slide, error) {
	if r.Client == nil || r.Bucket == "" {
		return r.fallback(ctx)
	}
	it := r.Client.Bucket(r.Bucket).Objects(ctx, &storage.Query{Prefix: r.Prefix})

	var out []entity.Slide
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if r.Logger != nil {
				r.Logger.WithError(err).WithField("bucket", r.Bucket).Warn("list slides failed, using fallback")
			}
			return r.fallback(ctx)
		}
		if s, ok := slideFromObject(r.Bucket, attrs.Name, attrs.ContentType, attrs.Metadata); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return r.fallback(ctx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImageURL < out[j].ImageURL })
	return out, nil
}

func (r *GCSRepository) fallback(ctx context.Context) ([]entity.Slide, error) {
	if r.Fallback == nil {
		return nil, nil
	}
	return r.Fallback.List(ctx)
}

func slideFromObject(bucket, name, contentType string, meta map[string]string) (entity.Slide, bool) {
	if strings.HasSuffix(name, "/") || !strings.HasPrefix(contentType, "image/") {
		return entity.Slide{}, false
	}
	base := path.Base(name)
	id := strings.TrimSuffix(base, path.Ext(base))
	if id == "" {
		return entity.Slide{}, false
	}
	title := strings.TrimSpace(meta["title"])
	if title == "" {
		title = id
	}
	return entity.Slide{ID: id, Title: title, ImageURL: helpers.PublicURL(bucket, name)}, true
}

var _ repository.SlideRepository = (*GCSRepository)(nil)
