// Package i18n loads page translations and writes per-language variants of
// staged HTML files.
//
// Translations live in one JSON file per language (en.json, es.json, ...)
// shaped as {"<page>": {"<variable>": "<text>"}}. A staged page containing
// <div>TEXT=page.variable</div> gets a sibling <lang>-<base>.html for every
// language with the placeholder replaced by the translated text.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// placeholderPattern matches a translation placeholder and captures its key.
var placeholderPattern = regexp.MustCompile(`<div>TEXT=([a-zA-Z0-9_\.]+)</div>`)

// Translations maps language -> page -> variable -> text.
type Translations map[string]map[string]map[string]string

// Languages returns the loaded language codes, sorted.
func (t Translations) Languages() []string {
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Lookup returns the text of page.variable in lang.
func (t Translations) Lookup(lang, page, variable string) (string, bool) {
	text, ok := t[lang][page][variable]
	return text, ok
}

// Localize replaces every translation placeholder in content with its text
// in lang. A key that is not translated becomes the bare key; a key without
// a page part is left untouched.
func (t Translations) Localize(content, lang string) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		page, variable, ok := strings.Cut(key, ".")
		if !ok {
			return match
		}
		if text, found := t.Lookup(lang, page, variable); found {
			return "<div>" + text + "</div>"
		}
		return "<div>" + key + "</div>"
	})
}

// VariantPath returns where the lang variant of htmlPath is written.
func VariantPath(htmlPath, lang string) string {
	dir, base := filepath.Split(htmlPath)
	return filepath.Join(dir, lang+"-"+base)
}

// Loader reads translation files from a directory.
type Loader struct {
	dir    string
	logger logging.Logger
}

// NewLoader creates a loader for dir.
func NewLoader(dir string, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{dir: dir, logger: logger.WithComponent("i18n")}
}

// Load reads every <lang>.json file of the directory. A missing directory
// yields no languages. Files whose name is not a valid language tag are
// skipped; unreadable or malformed files are fatal.
func (l *Loader) Load(ctx context.Context) (Translations, error) {
	translations := make(Translations)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug(ctx, "No translation directory", "dir", l.dir)
			return translations, nil
		}
		return nil, errors.ErrIO("read translation directory", l.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}

		lang := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		tag, err := language.Parse(lang)
		if err != nil {
			l.logger.Warn(ctx, err, "Skipping translation file with invalid language code", "file", entry.Name())
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		pages, err := readTranslationFile(path)
		if err != nil {
			return nil, err
		}
		translations[lang] = pages

		l.logger.Info(ctx, "Loaded translations",
			"language", lang,
			"name", display.English.Languages().Name(tag),
			"pages", len(pages),
		)
	}

	return translations, nil
}

// readTranslationFile decodes one language file. Values that are not
// objects of strings are ignored.
func readTranslationFile(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrIO("read translation file", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.ErrIO("parse translation file", path, err)
	}

	pages := make(map[string]map[string]string, len(raw))
	for page, body := range raw {
		var fields map[string]interface{}
		if err := json.Unmarshal(body, &fields); err != nil {
			continue
		}
		vars := make(map[string]string, len(fields))
		for name, value := range fields {
			if text, ok := value.(string); ok {
				vars[name] = text
			}
		}
		pages[page] = vars
	}
	return pages, nil
}

// WriteVariants writes one localized copy of the staged HTML at htmlPath per
// language and returns the written paths.
func WriteVariants(htmlPath string, content string, translations Translations) ([]string, error) {
	var written []string
	for _, lang := range translations.Languages() {
		out := VariantPath(htmlPath, lang)
		if err := os.WriteFile(out, []byte(translations.Localize(content, lang)), 0644); err != nil {
			return written, errors.ErrIO(fmt.Sprintf("write %s variant", lang), out, err)
		}
		written = append(written, out)
	}
	return written, nil
}
