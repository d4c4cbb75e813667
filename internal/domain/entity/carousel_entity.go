package entity

// Slide is one item of the carousel.
type Slide struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
}

// Direction tags a slide transition for presentation only.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Transition describes one navigation step.
type Transition struct {
	From      int       `json:"from"`
	To        int       `json:"to"`
	Direction Direction `json:"direction"`
}

// CarouselState is the rendered carousel. Indicators has one entry per slide
// and exactly one of them, at Current, is true.
type CarouselState struct {
	Slides     []Slide   `json:"slides"`
	Current    int       `json:"current"`
	Direction  Direction `json:"direction"`
	Indicators []bool    `json:"indicators"`
}

// ActiveSlide returns the slide at Current.
func (s CarouselState) ActiveSlide() Slide {
	if s.Current < 0 || s.Current >= len(s.Slides) {
		return Slide{}
	}
	return s.Slides[s.Current]
}
