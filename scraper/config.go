// Package scraper holds the DOM conventions and interaction policy for the
// news site being scraped.
package scraper

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SiteConfig defines how to find article fields and press photos on one
// site, and how patiently to drive its pages.
type SiteConfig struct {
	// OverlayCloseSelector matches the close control of the interstitial
	// overlay (an email sign-up nag on AP News).
	OverlayCloseSelector string `yaml:"overlay_close_selector"`

	BylineSelector     string `yaml:"byline_selector"`
	TimestampSelector  string `yaml:"timestamp_selector"`
	TimestampAttribute string `yaml:"timestamp_attribute"`

	// GalleryArrowSelector matches the carousel advance control on the
	// article page. Once the image modal is open the control is a different
	// node and ModalArrowSelector must be used instead.
	GalleryArrowSelector string `yaml:"gallery_arrow_selector"`
	ModalArrowSelector   string `yaml:"modal_arrow_selector"`

	// ImageContainerSelector scopes the image scan after each modal click.
	ImageContainerSelector string `yaml:"image_container_selector"`
	ImageSelector          string `yaml:"image_selector"`
	// ImageHost is a substring every press photo URL contains.
	ImageHost string `yaml:"image_host"`

	PollInterval      time.Duration `yaml:"poll_interval"`
	MaxWait           time.Duration `yaml:"max_wait"`
	ScrollSettle      time.Duration `yaml:"scroll_settle"`
	ClickSettle       time.Duration `yaml:"click_settle"`
	MaxScrollSteps    int           `yaml:"max_scroll_steps"`
	MaxCarouselClicks int           `yaml:"max_carousel_clicks"`
}

// APNews returns the conventions of apnews.com article pages.
func APNews() SiteConfig {
	return SiteConfig{
		OverlayCloseSelector:   "[class='sailthru-overlay-close']",
		BylineSelector:         "[class*='byline']",
		TimestampSelector:      "span[data-key='timestamp']",
		TimestampAttribute:     "data-source",
		GalleryArrowSelector:   "[class*='gallery-arrow']",
		ModalArrowSelector:     "svg[class*='right-']",
		ImageContainerSelector: "div[class*='imagePlaceholder']",
		ImageSelector:          "img[src*='googleapis']",
		ImageHost:              "googleapis",
		PollInterval:           4 * time.Second,
		MaxWait:                16 * time.Second,
		ScrollSettle:           500 * time.Millisecond,
		ClickSettle:            500 * time.Millisecond,
		MaxScrollSteps:         50,
		MaxCarouselClicks:      100,
	}
}

// IsPressPhoto reports whether src is hosted where the site keeps its press
// photos. Icons, ads and UI chrome live elsewhere.
func (c SiteConfig) IsPressPhoto(src string) bool {
	return src != "" && strings.Contains(src, c.ImageHost)
}

// Validate checks that every selector is set and every bound is positive.
// The wait loops rely on positive intervals to terminate.
func (c SiteConfig) Validate() error {
	selectors := map[string]string{
		"overlay_close_selector":   c.OverlayCloseSelector,
		"byline_selector":          c.BylineSelector,
		"timestamp_selector":       c.TimestampSelector,
		"timestamp_attribute":      c.TimestampAttribute,
		"gallery_arrow_selector":   c.GalleryArrowSelector,
		"modal_arrow_selector":     c.ModalArrowSelector,
		"image_container_selector": c.ImageContainerSelector,
		"image_selector":           c.ImageSelector,
		"image_host":               c.ImageHost,
	}
	for name, v := range selectors {
		if strings.TrimSpace(v) == "" {
			return eris.Errorf("scraper: %s is empty", name)
		}
	}

	if c.PollInterval <= 0 {
		return eris.New("scraper: poll_interval must be positive")
	}
	if c.MaxWait < 0 || c.ScrollSettle < 0 || c.ClickSettle < 0 {
		return eris.New("scraper: wait durations must not be negative")
	}
	if c.MaxScrollSteps < 0 {
		return eris.New("scraper: max_scroll_steps must not be negative")
	}
	if c.MaxCarouselClicks < 0 {
		return eris.New("scraper: max_carousel_clicks must not be negative")
	}
	return nil
}
