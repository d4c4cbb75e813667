package application

import (
	"errors"
	"sync"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
)

var ErrNoSlides = errors.New("carousel needs at least one slide")

// CarouselController tracks the active slide. Indices wrap in both
// directions; the direction of a jump is whichever way round is shorter,
// forward on a tie.
type CarouselController struct {
	mu        sync.Mutex
	slides    []entity.Slide
	current   int
	direction entity.Direction
	onChange  func(entity.CarouselState)
}

func NewCarouselController(slides []entity.Slide) (*CarouselController, error) {
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}
	return &CarouselController{
		slides:    append([]entity.Slide(nil), slides...),
		direction: entity.Forward,
	}, nil
}

func (c *CarouselController) OnChange(fn func(entity.CarouselState)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *CarouselController) Next() entity.Transition {
	return c.move(func(cur int) int { return cur + 1 })
}

func (c *CarouselController) Prev() entity.Transition {
	return c.move(func(cur int) int { return cur - 1 })
}

// GoTo activates slide i mod N. Any int is accepted, negatives included.
func (c *CarouselController) GoTo(i int) entity.Transition {
	return c.move(func(int) int { return i })
}

// move picks the target from the current index and applies it in one lock
// hold, so concurrent navigations never read the same starting slide.
func (c *CarouselController) move(target func(cur int) int) entity.Transition {
	c.mu.Lock()
	tr := c.goToLocked(target(c.current))
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	emit(fn, snap)
	return tr
}

func (c *CarouselController) goToLocked(i int) entity.Transition {
	n := len(c.slides)
	to := mod(i, n)
	tr := entity.Transition{From: c.current, To: to, Direction: directionOf(c.current, to, n)}
	c.current = to
	c.direction = tr.Direction
	return tr
}

func (c *CarouselController) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *CarouselController) Len() int {
	return len(c.slides)
}

func (c *CarouselController) Snapshot() entity.CarouselState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *CarouselController) snapshotLocked() entity.CarouselState {
	ind := make([]bool, len(c.slides))
	ind[c.current] = true
	return entity.CarouselState{
		Slides:     append([]entity.Slide(nil), c.slides...),
		Current:    c.current,
		Direction:  c.direction,
		Indicators: ind,
	}
}

func directionOf(from, to, n int) entity.Direction {
	if 2*mod(to-from, n) <= n {
		return entity.Forward
	}
	return entity.Backward
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
