package config

import (
	"sync"
)

// Config is the root configuration for the deskgram bridge.
type Config struct {
	Crisp      CrispConfig    `json:"crisp"`
	Telegram   TelegramConfig `json:"telegram"`
	OpenAI     OpenAIConfig   `json:"openai,omitempty"`
	Identities Identities     `json:"identities,omitempty"`
	Uploader   UploaderConfig `json:"uploader,omitempty"`
	Autoreply  []KeywordRule  `json:"autoreply,omitempty"`
	OffDuty    OffDutyConfig  `json:"offduty,omitempty"`
	Sessions   SessionsConfig `json:"sessions,omitempty"`
	mu         sync.RWMutex
}

// CrispConfig holds plugin-tier credentials for the Crisp REST and RTM APIs.
type CrispConfig struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	WebsiteID string `json:"website_id"`
}

// TelegramConfig holds the bot token and the support group the bridge operates in.
// GroupID is the forum supergroup where one topic is created per conversation.
type TelegramConfig struct {
	Token   string `json:"token"`
	GroupID int64  `json:"group_id"`
	// SendRate caps outbound Bot API calls per second. 0 = default.
	SendRate float64 `json:"send_rate,omitempty"`
}

// OpenAIConfig configures the optional AI auto-reply provider.
// An empty APIKey disables AI replies entirely.
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	APIBase string `json:"api_base,omitempty"`
	Model   string `json:"model,omitempty"`
	Prompt  string `json:"prompt,omitempty"` // system prompt for auto-replies
}

// Identity is the nickname/avatar pair a message is attributed to in Crisp.
type Identity struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Identities groups the three author identities the bridge writes as.
type Identities struct {
	AI       Identity `json:"ai,omitempty"`
	System   Identity `json:"system,omitempty"`
	Operator Identity `json:"operator,omitempty"`
}

// KeywordRule maps pipe-delimited aliases to a canned reply.
// An empty Aliases string marks the off-duty catch-all rule.
type KeywordRule struct {
	Aliases string `json:"aliases"`
	Reply   string `json:"reply"`
}

// OffDutyConfig controls the global off-duty auto-reply mode.
// When Schedule is set (a cron expression), off-duty is considered active
// whenever the expression matches the current minute; Enabled is the manual
// override toggled from the admin surface.
type OffDutyConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Schedule string `json:"schedule,omitempty"`
}

// UploaderConfig enables/disables the image host fallback chain.
type UploaderConfig struct {
	Telegraph  TelegraphConfig  `json:"telegraph,omitempty"`
	Imgbb      ImgbbConfig      `json:"imgbb,omitempty"`
	SangPub    SangPubConfig    `json:"sangpub,omitempty"`
	Cloudinary CloudinaryConfig `json:"cloudinary,omitempty"`
}

type TelegraphConfig struct {
	Enabled bool `json:"enabled,omitempty"`
}

type ImgbbConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
	Expiration int    `json:"expiration,omitempty"` // seconds; 0 = never
}

type SangPubConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	URL     string `json:"url,omitempty"`
}

type CloudinaryConfig struct {
	Enabled      bool   `json:"enabled,omitempty"`
	CloudName    string `json:"cloud_name,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	UploadPreset string `json:"upload_preset,omitempty"`
}

// SessionsConfig locates the persisted conversation→topic mapping.
type SessionsConfig struct {
	Path string `json:"path,omitempty"` // default: sessions.json next to the config file
}

// Default returns a config with sane defaults applied.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Identities: Identities{
			AI:       Identity{Nickname: "AI Agent"},
			System:   Identity{Nickname: "System"},
			Operator: Identity{Nickname: "Support Agent"},
		},
		Uploader: UploaderConfig{
			Telegraph: TelegraphConfig{Enabled: true},
		},
		Sessions: SessionsConfig{Path: "sessions.json"},
	}
}

// HasAIProvider reports whether an AI completion provider is configured.
// New sessions default AIEnabled to this value.
func (c *Config) HasAIProvider() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.OpenAI.APIKey != ""
}

// KeywordRules returns a copy of the configured auto-reply rules in order.
func (c *Config) KeywordRules() []KeywordRule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules := make([]KeywordRule, len(c.Autoreply))
	copy(rules, c.Autoreply)
	return rules
}

// SetKeywordRules replaces the auto-reply rule table.
func (c *Config) SetKeywordRules(rules []KeywordRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Autoreply = make([]KeywordRule, len(rules))
	copy(c.Autoreply, rules)
}

// SetOffDuty flips the manual off-duty toggle.
func (c *Config) SetOffDuty(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OffDuty.Enabled = enabled
}

// OffDutySnapshot returns the current off-duty settings.
func (c *Config) OffDutySnapshot() OffDutyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.OffDuty
}
