// Package uploader relays image payloads to third-party hosts, trying
// providers in a fixed priority order until one returns a usable URL.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deskgram/deskgram/internal/config"
)

// ErrAllProvidersFailed reports that every enabled provider was tried.
// Callers treat this as a soft failure and send a plain link fallback.
var ErrAllProvidersFailed = errors.New("all upload providers failed")

// perAttemptTimeout bounds a single provider POST.
const perAttemptTimeout = 15 * time.Second

// Provider is one image host in the fallback chain.
type Provider interface {
	Name() string
	// Enabled reports whether the provider is switched on and has the
	// credentials it needs. Disabled providers are skipped, not counted
	// as failures.
	Enabled() bool
	// Upload posts the image and returns its public URL.
	Upload(ctx context.Context, client *http.Client, img Image) (string, error)
}

// Image is a normalized payload ready for a multipart upload.
type Image struct {
	Data     []byte
	Format   string // "jpeg", "png", "gif", ...
	MIMEType string // "image/jpeg", ...
}

// Uploader walks the provider chain in priority order.
type Uploader struct {
	providers []Provider
	client    *http.Client
}

// New builds the default chain from config: telegraph, imgbb, sangpub,
// cloudinary — the order is fixed, the config only switches hosts on or off.
func New(cfg config.UploaderConfig) *Uploader {
	return NewWithProviders(
		&telegraphProvider{cfg: cfg.Telegraph},
		&imgbbProvider{cfg: cfg.Imgbb},
		&sangPubProvider{cfg: cfg.SangPub},
		&cloudinaryProvider{cfg: cfg.Cloudinary},
	)
}

// NewWithProviders builds an uploader over an explicit chain.
func NewWithProviders(providers ...Provider) *Uploader {
	return &Uploader{
		providers: providers,
		client:    &http.Client{Timeout: perAttemptTimeout},
	}
}

// Upload normalizes the payload and tries each enabled provider in order,
// returning the first successful URL. Any provider error (network, non-2xx,
// malformed response, non-HTTP URL) logs and advances the chain.
func (u *Uploader) Upload(ctx context.Context, data []byte) (string, error) {
	img := normalizeImage(data)

	var lastErr error
	for _, p := range u.providers {
		if !p.Enabled() {
			slog.Debug("skipping disabled upload provider", "provider", p.Name())
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
		url, err := p.Upload(attemptCtx, u.client, img)
		cancel()
		if err != nil {
			slog.Warn("image upload attempt failed", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}
		if !strings.HasPrefix(url, "http") {
			slog.Warn("image upload returned non-http url", "provider", p.Name(), "url", url)
			lastErr = fmt.Errorf("%s: non-http url %q", p.Name(), url)
			continue
		}

		slog.Info("image uploaded", "provider", p.Name(), "url", url)
		return url, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: last error: %v", ErrAllProvidersFailed, lastErr)
	}
	return "", fmt.Errorf("%w: no provider enabled", ErrAllProvidersFailed)
}
