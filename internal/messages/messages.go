// Package messages holds the fixed user-visible chat texts. Failures are
// deliberately uniform: the widget shows one of these strings, never the
// underlying error.
package messages

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Texts struct {
	LimitReached string `yaml:"limit_reached"`
	Error        string `yaml:"error"`
	Processing   string `yaml:"processing"`
}

type Catalog struct {
	byLang      map[string]Texts
	defaultLang string
}

var defaults = map[string]Texts{
	"en": {
		LimitReached: "You've reached today's message limit. Please come back tomorrow or contact us on WhatsApp.",
		Error:        "Sorry, something went wrong. Please try again in a moment.",
		Processing:   "Sorry, I couldn't process that response. Please try again.",
	},
	"ru": {
		LimitReached: "Вы достигли дневного лимита сообщений. Возвращайтесь завтра или напишите нам в WhatsApp.",
		Error:        "Извините, что-то пошло не так. Пожалуйста, попробуйте ещё раз.",
		Processing:   "Извините, я не смог обработать ответ. Пожалуйста, попробуйте ещё раз.",
	},
	"kk": {
		LimitReached: "Сіз бүгінгі хабарлама лимитіне жеттіңіз. Ертең қайта келіңіз немесе бізге WhatsApp арқылы жазыңыз.",
		Error:        "Кешіріңіз, қателік орын алды. Қайталап көріңіз.",
		Processing:   "Кешіріңіз, жауапты өңдей алмадым. Қайталап көріңіз.",
	},
}

func Default(defaultLang string) *Catalog {
	byLang := make(map[string]Texts, len(defaults))
	for lang, t := range defaults {
		byLang[lang] = t
	}
	c := &Catalog{byLang: byLang, defaultLang: defaultLang}
	if _, ok := c.byLang[c.defaultLang]; !ok {
		c.defaultLang = "ru"
	}
	return c
}

// Load overlays texts from a YAML file onto the built-in defaults. The
// file maps language codes to texts; empty fields keep their default.
func Load(path, defaultLang string) (*Catalog, error) {
	c := Default(defaultLang)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}
	var overrides map[string]Texts
	if err := yaml.Unmarshal(b, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse messages file: %w", err)
	}
	for lang, o := range overrides {
		t := c.byLang[lang]
		if o.LimitReached != "" {
			t.LimitReached = o.LimitReached
		}
		if o.Error != "" {
			t.Error = o.Error
		}
		if o.Processing != "" {
			t.Processing = o.Processing
		}
		c.byLang[lang] = t
	}
	return c, nil
}

// For returns the texts for a language, falling back to the default
// language for unknown codes.
func (c *Catalog) For(lang string) Texts {
	if t, ok := c.byLang[lang]; ok {
		return t
	}
	return c.byLang[c.defaultLang]
}
