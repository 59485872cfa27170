package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAI.APIBase != "https://api.openai.com/v1" {
		t.Errorf("default api_base = %q", cfg.OpenAI.APIBase)
	}
	if !cfg.Uploader.Telegraph.Enabled {
		t.Error("telegraph should be enabled by default")
	}
}

func TestLoadParsesJSON5AndKeepsRuleOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		// support bridge config
		crisp: { id: "abc", key: "secret", website_id: "site-1" },
		telegram: { token: "123:tok", group_id: -100200300 },
		autoreply: [
			{ aliases: "hello|hi", reply: "Welcome" },
			{ aliases: "price", reply: "See pricing page" },
			{ aliases: "", reply: "We are off duty" },
		],
	}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crisp.WebsiteID != "site-1" {
		t.Errorf("website_id = %q", cfg.Crisp.WebsiteID)
	}
	if cfg.Telegram.GroupID != -100200300 {
		t.Errorf("group_id = %d", cfg.Telegram.GroupID)
	}
	rules := cfg.KeywordRules()
	if len(rules) != 3 {
		t.Fatalf("rules = %d, want 3", len(rules))
	}
	if rules[0].Aliases != "hello|hi" || rules[2].Aliases != "" {
		t.Errorf("rule order not preserved: %+v", rules)
	}
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{crisp:{id:"file-id"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DESKGRAM_CRISP_ID", "env-id")
	t.Setenv("DESKGRAM_TELEGRAM_GROUP_ID", "-42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crisp.ID != "env-id" {
		t.Errorf("crisp id = %q, want env-id", cfg.Crisp.ID)
	}
	if cfg.Telegram.GroupID != -42 {
		t.Errorf("group id = %d, want -42", cfg.Telegram.GroupID)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Crisp = CrispConfig{ID: "a", Key: "b", WebsiteID: "c"}
	cfg.SetKeywordRules([]KeywordRule{{Aliases: "hi", Reply: "yo"}})

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perm = %v, want 0600", info.Mode().Perm())
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save error = %v", err)
	}
	if back.Crisp.WebsiteID != "c" || len(back.KeywordRules()) != 1 {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
