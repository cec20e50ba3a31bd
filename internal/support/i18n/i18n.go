// 文件路径: internal/support/i18n/i18n.go
// 模块说明: 错误信息翻译。语言包随二进制一起嵌入，也可以从外部目录覆盖。
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// DefaultLang 是找不到匹配语言时使用的语言。
const DefaultLang = "en-US"

// Manager 管理翻译内容。
type Manager struct {
	defaultLang  string
	translations map[string]map[string]string
	matcher      language.Matcher
	tags         []string
	logger       *slog.Logger
	mu           sync.RWMutex
}

// Option 用于配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDefaultLang 设置默认语言。
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		if strings.TrimSpace(lang) != "" {
			m.defaultLang = lang
		}
	}
}

// NewManager 创建 i18n Manager 并加载内置语言包。
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  DefaultLang,
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	entries, err := embeddedLocales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read embedded locales: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := embeddedLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", entry.Name(), err)
		}
		if err := m.merge(strings.TrimSuffix(entry.Name(), ".json"), data); err != nil {
			return nil, err
		}
	}
	m.rebuildMatcher()
	return m, nil
}

// LoadFromDir 从外部目录加载翻译文件，同名键覆盖内置内容。目录不存在时忽略。
func (m *Manager) LoadFromDir(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read locales directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			m.logger.Warn("failed to read external locale file", "file", file.Name(), "error", err)
			continue
		}
		if err := m.merge(strings.TrimSuffix(file.Name(), ".json"), data); err != nil {
			m.logger.Warn("failed to load external locale file", "file", file.Name(), "error", err)
		}
	}
	m.rebuildMatcher()
	return nil
}

func (m *Manager) merge(lang string, data []byte) error {
	var content map[string]string
	if err := json.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("decode locale %s: %w", lang, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.translations[lang]
	if !ok {
		bucket = make(map[string]string, len(content))
		m.translations[lang] = bucket
	}
	for k, v := range content {
		bucket[k] = v
	}
	return nil
}

func (m *Manager) rebuildMatcher() {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		if lang != m.defaultLang {
			names = append(names, lang)
		}
	}
	sort.Strings(names)
	// 默认语言放在第一位，Matcher 匹配失败时会返回它。
	names = append([]string{m.defaultLang}, names...)
	tags := make([]language.Tag, 0, len(names))
	for _, name := range names {
		tags = append(tags, language.Make(name))
	}
	m.tags = names
	m.matcher = language.NewMatcher(tags)
}

// Resolve 把任意语言标签（例如 "zh"、"zh-cn"）映射到已加载的语言包名称。
func (m *Manager) Resolve(lang string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(lang)
}

func (m *Manager) resolveLocked(lang string) string {
	if m.matcher == nil || strings.TrimSpace(lang) == "" {
		return m.defaultLang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return m.defaultLang
	}
	_, index, confidence := m.matcher.Match(tag)
	if confidence == language.No || index < 0 || index >= len(m.tags) {
		return m.defaultLang
	}
	return m.tags[index]
}

// Translate 按语言与键名返回翻译内容，找不到时依次回退到默认语言和键名本身。
func (m *Manager) Translate(lang, key string, args ...any) string {
	if m == nil {
		return key
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, candidate := range []string{m.resolveLocked(lang), m.defaultLang} {
		if val, ok := m.translations[candidate][key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(val, args...)
			}
			return val
		}
	}
	return key
}

// GetSupportedLanguages 返回支持的语言列表，默认语言在前。
func (m *Manager) GetSupportedLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.tags...)
}
