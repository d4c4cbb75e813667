package repository

import (
	"context"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
)

// SlideRepository lists the carousel slides in display order.
type SlideRepository interface {
	List(ctx context.Context) ([]entity.Slide, error)
}
