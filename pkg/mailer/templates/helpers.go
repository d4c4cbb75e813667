package templates

import (
	"context"
	"strings"
	"time"

	"github.com/oksasatya/go-form-playground/config"
)

const timeLayout = "02 January 2006, 15:04 MST"

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option { return func(d *EmailData) { d.IP = strings.TrimSpace(ip) } }

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format(timeLayout)
	}
}

func setLocation(d *EmailData, loc string) {
	if s := strings.TrimSpace(loc); s != "" {
		d.Location = s
	}
}

func WithLocation(loc string) Option {
	return func(d *EmailData) { setLocation(d, loc) }
}

func WithGeo(g Geo) Option {
	return func(d *EmailData) { setLocation(d, FormatGeo(g)) }
}

// WithGeoFromIP resolves d.IP once, filling Location and rendering Time in
// the visitor's timezone. Must come after WithIP and WithTime.
func WithGeoFromIP(ctx context.Context, r GeoResolver) Option {
	return func(d *EmailData) {
		if r == nil || d.IP == "" {
			return
		}
		g, err := r.Lookup(ctx, d.IP)
		if err != nil {
			return
		}
		setLocation(d, FormatGeo(g))
		if d.TimeAt.IsZero() || strings.TrimSpace(g.Timezone) == "" {
			return
		}
		if loc, err := time.LoadLocation(g.Timezone); err == nil {
			d.Time = d.TimeAt.In(loc).Format(timeLayout)
		}
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		AppName:        cfg.AppName,

		LogoURL:       cfg.LogoURL,
		SupportURL:    cfg.SupportURL,
		PrivacyURL:    cfg.PrivacyURL,
		PlaygroundURL: cfg.PlaygroundURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) EmailData {
	return NewBaseEmailData(cfg, Welcome, name, email, opts...)
}
