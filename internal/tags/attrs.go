package tags

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"feedrender/internal/domain"
)

// FeedAttrs - атрибуты тега ленты.
type FeedAttrs struct {
	// Feed - URL ленты.
	Feed string
	// Cache - сколько запись кэша считается свежей.
	Cache time.Duration
	// Limit - максимум элементов; 0 и меньше означает без ограничения.
	Limit int
}

// XPathAttrs - атрибуты тегов с XPath-запросом.
type XPathAttrs struct {
	XPath string
}

// LinkAttrs - HTML-атрибуты ссылки на элемент.
type LinkAttrs struct {
	Class  string
	ID     string
	Style  string
	Target string
}

// PostedAttrs - атрибуты тега даты публикации.
// Lang и Calendar принимаются для совместимости шаблонов, но не влияют на вывод.
type PostedAttrs struct {
	Calendar string
	Format   string
	GMT      bool
	Lang     string
}

// ParseFeedAttrs разбирает атрибуты тега ленты. Отсутствующий cache берётся из defaultTTL,
// отсутствующий или нечисловой limit - из defaultLimit.
func ParseFeedAttrs(atts map[string]string, defaultTTL time.Duration, defaultLimit int) FeedAttrs {
	a := FeedAttrs{
		Feed:  strings.TrimSpace(atts["feed"]),
		Cache: defaultTTL,
		Limit: defaultLimit,
	}
	if raw, ok := atts["cache"]; ok {
		a.Cache = domain.TTLSeconds(leadingInt(raw))
	}
	if raw, ok := atts["limit"]; ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			a.Limit = int(n)
		}
	}
	return a
}

func ParseXPathAttrs(atts map[string]string) XPathAttrs {
	return XPathAttrs{XPath: atts["xpath"]}
}

func ParseLinkAttrs(atts map[string]string) LinkAttrs {
	return LinkAttrs{
		Class:  atts["class"],
		ID:     atts["id"],
		Style:  atts["style"],
		Target: atts["target"],
	}
}

func ParsePostedAttrs(atts map[string]string) PostedAttrs {
	return PostedAttrs{
		Calendar: atts["calendar"],
		Format:   atts["format"],
		GMT:      truthy(atts["gmt"]),
		Lang:     atts["lang"],
	}
}

// leadingInt разбирает целое в начале строки, как это делают шаблонные движки:
// "90s" даёт 90, нечисловая строка даёт 0, слишком большое число насыщается.
func leadingInt(raw string) int64 {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
