package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Load reads the config file at path. A missing file yields defaults so the
// onboard wizard can take over; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("DESKGRAM_CRISP_ID", &c.Crisp.ID)
	envStr("DESKGRAM_CRISP_KEY", &c.Crisp.Key)
	envStr("DESKGRAM_CRISP_WEBSITE", &c.Crisp.WebsiteID)
	envStr("DESKGRAM_TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("DESKGRAM_OPENAI_API_KEY", &c.OpenAI.APIKey)
	envStr("DESKGRAM_IMGBB_API_KEY", &c.Uploader.Imgbb.APIKey)
	envStr("DESKGRAM_CLOUDINARY_API_KEY", &c.Uploader.Cloudinary.APIKey)

	if v := os.Getenv("DESKGRAM_TELEGRAM_GROUP_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.GroupID = id
		}
	}
}

// Save writes the config as strict JSON. Secrets live in the file, so 0600.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// SessionsPath resolves the session store path relative to the config file.
func (c *Config) SessionsPath(cfgPath string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.Sessions.Path
	if p == "" {
		p = "sessions.json"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(cfgPath), p)
}
