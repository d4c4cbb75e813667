package templates

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-form-playground/config"
)

type stubResolver struct{ geo Geo }

func (s stubResolver) Lookup(context.Context, string) (Geo, error) { return s.geo, nil }

func TestRenderWelcome(t *testing.T) {
	cfg := &config.Config{AppName: "Form Playground", CompanyName: "Acme"}
	d := NewWelcomeData(cfg, "Jane", "jane@example.com")

	subject, text, html, err := Render(Welcome, d)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Form Playground, Jane", subject)
	assert.Contains(t, text, "Hi Jane,")
	assert.Contains(t, html, "<strong>jane@example.com</strong>")
	assert.Contains(t, html, "Acme")
}

func TestRenderWelcome_EscapesHTML(t *testing.T) {
	d := NewWelcomeData(&config.Config{}, "<b>x</b>", "x@example.com")
	_, _, html, err := Render(Welcome, d)
	require.NoError(t, err)
	assert.NotContains(t, html, "<b>x</b>")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, _, err := Render("missing", EmailData{})
	assert.Error(t, err)
}

func TestWithGeoFromIP_LocalizesTime(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := stubResolver{geo: Geo{City: "Jakarta", Country: "Indonesia", Timezone: "Asia/Jakarta"}}

	d := NewWelcomeData(&config.Config{}, "Jane", "jane@example.com",
		WithIP("203.0.113.7"), WithTime(at), WithGeoFromIP(context.Background(), r))

	assert.Equal(t, "Jakarta, Indonesia", d.Location)
	assert.Contains(t, d.Time, "17:00")
}

func TestWithGeoFromIP_NoIP(t *testing.T) {
	d := NewWelcomeData(&config.Config{}, "Jane", "jane@example.com",
		WithGeoFromIP(context.Background(), stubResolver{geo: Geo{City: "X"}}))
	assert.Empty(t, d.Location)
}

func TestDefaultFn(t *testing.T) {
	assert.Equal(t, "fb", defaultFn("fb", "  "))
	assert.Equal(t, "fb", defaultFn("fb", nil))
	assert.Equal(t, "fb", defaultFn("fb", 0))
	assert.Equal(t, "v", defaultFn("fb", "v"))
}
