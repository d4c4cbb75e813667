package slides

import (
	"context"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/repository"
)

// StaticRepository serves a fixed slide list, typically from SLIDES.
type StaticRepository struct {
	slides []entity.Slide
}

// NewStaticRepository builds slides from (id, title) pairs.
func NewStaticRepository(pairs [][2]string) *StaticRepository {
	out := make([]entity.Slide, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, entity.Slide{ID: p[0], Title: p[1]})
	}
	return &StaticRepository{slides: out}
}

func (r *StaticRepository) List(context.Context) ([]entity.Slide, error) {
	return append([]entity.Slide(nil), r.slides...), nil
}

var _ repository.SlideRepository = (*StaticRepository)(nil)
