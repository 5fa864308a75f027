package feed

import (
	"strings"
	"time"

	"feedrender/internal/domain"
)

var timestampLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// rfc822Zones - буквенные пояса RFC 822 и их смещения. Прочие аббревиатуры,
// кроме UTC, не распознаются: time.Parse молча принял бы их за UTC.
var rfc822Zones = map[string]string{
	"UT":  "+0000",
	"GMT": "+0000",
	"Z":   "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// ParseTimestamp разбирает дату публикации из RSS (RFC 822) или Atom (RFC 3339).
// Возвращает секунды Unix или domain.PostedUnknown, если формат не распознан.
func ParseTimestamp(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.PostedUnknown
	}
	raw = numericZone(raw)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if zone, _ := t.Zone(); strings.HasSuffix(layout, "MST") && zone != "UTC" {
			return domain.PostedUnknown
		}
		return t.Unix()
	}
	return domain.PostedUnknown
}

// numericZone заменяет завершающий буквенный пояс RFC 822 числовым смещением.
func numericZone(raw string) string {
	i := strings.LastIndexByte(raw, ' ')
	if i < 0 {
		return raw
	}
	if offset, ok := rfc822Zones[strings.ToUpper(raw[i+1:])]; ok {
		return raw[:i+1] + offset
	}
	return raw
}
