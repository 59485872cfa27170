package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/deskgram/deskgram/internal/config"
)

const (
	telegraphEndpoint  = "https://telegra.ph/upload"
	imgbbEndpoint      = "https://api.imgbb.com/1/upload"
	sangPubEndpoint    = "https://file.sang.pub/api/upload"
	cloudinaryEndpoint = "https://api.cloudinary.com/v1_1/%s/image/upload"
)

// postMultipart builds a one-file multipart body and posts it.
// Extra fields are appended as plain form values.
func postMultipart(ctx context.Context, client *http.Client, url, field string, img Image, extra map[string]string) ([]byte, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile(field, "image."+img.Format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(respBody))
	}
	return respBody, nil
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// --- telegra.ph ---

type telegraphProvider struct {
	cfg      config.TelegraphConfig
	endpoint string // test override
}

func (p *telegraphProvider) Name() string  { return "telegraph" }
func (p *telegraphProvider) Enabled() bool { return p.cfg.Enabled }

func (p *telegraphProvider) Upload(ctx context.Context, client *http.Client, img Image) (string, error) {
	endpoint := p.endpoint
	if endpoint == "" {
		endpoint = telegraphEndpoint
	}

	body, err := postMultipart(ctx, client, endpoint, "file", img, nil)
	if err != nil {
		return "", fmt.Errorf("telegraph: %w", err)
	}

	var result []struct {
		Src string `json:"src"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("telegraph: decode response: %w", err)
	}
	if len(result) == 0 || result[0].Src == "" {
		return "", fmt.Errorf("telegraph: empty response")
	}
	return "https://telegra.ph" + result[0].Src, nil
}

// --- imgbb ---

type imgbbProvider struct {
	cfg      config.ImgbbConfig
	endpoint string
}

func (p *imgbbProvider) Name() string { return "imgbb" }

// Enabled requires the API key: imgbb rejects anonymous uploads.
func (p *imgbbProvider) Enabled() bool { return p.cfg.Enabled && p.cfg.APIKey != "" }

func (p *imgbbProvider) Upload(ctx context.Context, client *http.Client, img Image) (string, error) {
	endpoint := p.endpoint
	if endpoint == "" {
		endpoint = imgbbEndpoint
	}
	endpoint += "?key=" + p.cfg.APIKey
	if p.cfg.Expiration > 0 {
		endpoint += "&expiration=" + strconv.Itoa(p.cfg.Expiration)
	}

	body, err := postMultipart(ctx, client, endpoint, "image", img, nil)
	if err != nil {
		return "", fmt.Errorf("imgbb: %w", err)
	}

	var result struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("imgbb: decode response: %w", err)
	}
	if result.Data.URL == "" {
		return "", fmt.Errorf("imgbb: no url in response")
	}
	return result.Data.URL, nil
}

// --- file.sang.pub ---

type sangPubProvider struct {
	cfg config.SangPubConfig
}

func (p *sangPubProvider) Name() string  { return "sangpub" }
func (p *sangPubProvider) Enabled() bool { return p.cfg.Enabled }

func (p *sangPubProvider) Upload(ctx context.Context, client *http.Client, img Image) (string, error) {
	endpoint := p.cfg.URL
	if endpoint == "" {
		endpoint = sangPubEndpoint
	}

	body, err := postMultipart(ctx, client, endpoint, "file", img, nil)
	if err != nil {
		return "", fmt.Errorf("sangpub: %w", err)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("sangpub: decode response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("sangpub: no url in response")
	}
	return result.URL, nil
}

// --- cloudinary ---

type cloudinaryProvider struct {
	cfg      config.CloudinaryConfig
	endpoint string
}

func (p *cloudinaryProvider) Name() string { return "cloudinary" }

func (p *cloudinaryProvider) Enabled() bool {
	return p.cfg.Enabled && p.cfg.CloudName != "" && p.cfg.APIKey != "" && p.cfg.UploadPreset != ""
}

func (p *cloudinaryProvider) Upload(ctx context.Context, client *http.Client, img Image) (string, error) {
	endpoint := p.endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(cloudinaryEndpoint, p.cfg.CloudName)
	}

	body, err := postMultipart(ctx, client, endpoint, "file", img, map[string]string{
		"upload_preset": p.cfg.UploadPreset,
		"api_key":       p.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary: %w", err)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("cloudinary: decode response: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary: no secure_url in response")
	}
	return result.SecureURL, nil
}
