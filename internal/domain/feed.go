package domain

// Item представляет снимок текущего элемента ленты, собранный через мемоизированные аксессоры.
type Item struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Posted int64  `json:"posted"`
}

// PostedUnknown - значение Posted, если дату публикации не удалось разобрать.
const PostedUnknown int64 = -1

// HasPosted сообщает, удалось ли разобрать дату публикации.
func (i Item) HasPosted() bool {
	return i.Posted != PostedUnknown
}

// PreviewItem - элемент предпросмотра ленты. XPath-поля заполняются, только если выражение задано.
type PreviewItem struct {
	Item
	XPath       *string `json:"xpath,omitempty"`
	XPathExists *bool   `json:"xpath_exists,omitempty"`
}

// Preview - результат предпросмотра ленты для API.
type Preview struct {
	Title string        `json:"title"`
	Type  string        `json:"type"`
	Items []PreviewItem `json:"items"`
}
