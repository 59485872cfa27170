// Package keyword implements the auto-reply rule table.
//
// Rules are evaluated in configured order; a rule's aliases are split on "|"
// and the rule fires when any alias is a substring of the message. Matching is
// case-sensitive with no tokenization, first match wins. The empty-alias rule
// is the off-duty catch-all: the matcher exposes it but does not decide its
// precedence — whether off-duty short-circuits ordinary keywords is the
// bridge's policy.
package keyword

import (
	"strings"
	"sync"

	"github.com/deskgram/deskgram/internal/config"
)

// Matcher holds an ordered rule table. Safe for concurrent use; rules are
// replaced wholesale on config reload or admin edits.
type Matcher struct {
	mu    sync.RWMutex
	rules []config.KeywordRule
}

func New(rules []config.KeywordRule) *Matcher {
	m := &Matcher{}
	m.ReplaceRules(rules)
	return m
}

// Match returns the reply for the first rule whose alias appears in content.
// The off-duty rule is skipped here; callers apply it via OffDutyReply.
func (m *Matcher) Match(content string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.Aliases == "" {
			continue
		}
		for _, alias := range strings.Split(r.Aliases, "|") {
			if alias == "" {
				continue
			}
			if strings.Contains(content, alias) {
				return r.Reply, true
			}
		}
	}
	return "", false
}

// OffDutyReply returns the empty-alias catch-all reply, if configured.
func (m *Matcher) OffDutyReply() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.Aliases == "" {
			return r.Reply, true
		}
	}
	return "", false
}

// Rules returns a copy of the current table in order.
func (m *Matcher) Rules() []config.KeywordRule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]config.KeywordRule, len(m.rules))
	copy(rules, m.rules)
	return rules
}

// ReplaceRules swaps in a new table.
func (m *Matcher) ReplaceRules(rules []config.KeywordRule) {
	fresh := make([]config.KeywordRule, len(rules))
	copy(fresh, rules)

	m.mu.Lock()
	m.rules = fresh
	m.mu.Unlock()
}

// Upsert adds a rule or replaces the reply of an existing alias set.
// Returns the updated table.
func (m *Matcher) Upsert(aliases, reply string) []config.KeywordRule {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rules {
		if r.Aliases == aliases {
			m.rules[i].Reply = reply
			return m.snapshotLocked()
		}
	}
	m.rules = append(m.rules, config.KeywordRule{Aliases: aliases, Reply: reply})
	return m.snapshotLocked()
}

// Remove deletes the rule keyed by an exact alias string.
// Reports whether a rule was removed and returns the updated table.
func (m *Matcher) Remove(aliases string) ([]config.KeywordRule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rules {
		if r.Aliases == aliases {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return m.snapshotLocked(), true
		}
	}
	return m.snapshotLocked(), false
}

func (m *Matcher) snapshotLocked() []config.KeywordRule {
	rules := make([]config.KeywordRule, len(m.rules))
	copy(rules, m.rules)
	return rules
}
