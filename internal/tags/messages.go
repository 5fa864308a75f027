package tags

import (
	"feedrender/internal/domain"

	platformerrors "github.com/jmgilman/go/errors"
)

var messages = map[platformerrors.ErrorCode]string{
	domain.CodeMalformedURL:            "the feed URL is malformed",
	domain.CodeFetchFailed:             "the feed could not be loaded from its URL",
	domain.CodeMalformedXML:            "the feed is not well-formed XML",
	domain.CodeUnknownFeedType:         "the feed type is not recognised",
	domain.CodeMissingParserCapability: "XML support is not available",
	domain.CodeNesting:                 "feed tags cannot be nested",
	domain.CodeMissingAttribute:        "the xpath attribute is required",
	domain.CodeMissingFeedURL:          "the feed attribute is required",
	domain.CodeNoActiveFeed:            "this tag must be used inside a feed",
	domain.CodeInvalidItemLink:         "the item has no valid link",
	domain.CodeMissingSession:          "the render context carries no feed session",
}

// Message возвращает читаемое сообщение для кода ошибки.
func Message(code platformerrors.ErrorCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "unexpected error (" + string(code) + ")"
}
