package domain

import platformerrors "github.com/jmgilman/go/errors"

// Коды ошибок загрузки ленты и работы тегов.
const (
	CodeMalformedURL            platformerrors.ErrorCode = "MALFORMED_URL"
	CodeFetchFailed             platformerrors.ErrorCode = "FETCH_FAILED"
	CodeMalformedXML            platformerrors.ErrorCode = "MALFORMED_XML"
	CodeUnknownFeedType         platformerrors.ErrorCode = "UNKNOWN_FEED_TYPE"
	CodeMissingParserCapability platformerrors.ErrorCode = "MISSING_PARSER_CAPABILITY"
	CodeNesting                 platformerrors.ErrorCode = "FEED_NESTING"
	CodeMissingAttribute        platformerrors.ErrorCode = "MISSING_REQUIRED_ATTRIBUTE"
	CodeMissingFeedURL          platformerrors.ErrorCode = "MISSING_FEED_URL"
	CodeNoActiveFeed            platformerrors.ErrorCode = "NO_ACTIVE_FEED"
	CodeInvalidItemLink         platformerrors.ErrorCode = "INVALID_ITEM_LINK"
	CodeMissingSession          platformerrors.ErrorCode = "MISSING_RENDER_SESSION"
)

// NewFetchError оборачивает сетевую ошибку. Такие ошибки можно повторить.
func NewFetchError(err error, url string) error {
	wrapped := platformerrors.Wrapf(err, CodeFetchFailed, "failed to fetch feed %s", url)
	return platformerrors.WithClassification(wrapped, platformerrors.ClassificationRetryable)
}

// Code возвращает код ошибки или CodeUnknown.
func Code(err error) platformerrors.ErrorCode {
	return platformerrors.GetCode(err)
}
