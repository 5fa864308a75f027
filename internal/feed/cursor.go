package feed

import (
	"iter"

	"feedrender/internal/domain"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Cursor - однопроходный курсор по элементам ленты в порядке документа.
// Advance - единственный метод, который меняет позицию и сбрасывает состояние элемента.
type Cursor struct {
	feed  *Feed
	items []*xmlquery.NodeNavigator
	pos   int
	state itemState
}

// itemState хранит мемоизированные поля текущего элемента и кэши XPath.
type itemState struct {
	id     *string
	title  *string
	url    *string
	posted *int64
	values map[string]string
	exists map[string]bool
}

func (s *itemState) reset() {
	*s = itemState{}
}

// Rewind заново выбирает все элементы ленты и ставит курсор на первый.
func (c *Cursor) Rewind() {
	c.items = c.feed.xpaths.selectAll(c.feed.v.items, documentNavigator(c.feed.doc))
	c.pos = 0
	c.state.reset()
}

// Valid сообщает, указывает ли курсор на существующий элемент.
func (c *Cursor) Valid() bool {
	return c.pos >= 0 && c.pos < len(c.items)
}

// Key возвращает порядковый номер текущего элемента.
func (c *Cursor) Key() int {
	return c.pos
}

// Len возвращает число элементов, найденных при последней перемотке.
func (c *Cursor) Len() int {
	return len(c.items)
}

// Current возвращает узел текущего элемента или nil, если курсор за концом.
func (c *Cursor) Current() *xmlquery.Node {
	if !c.Valid() {
		return nil
	}
	return c.items[c.pos].Current()
}

// Advance сдвигает курсор на один элемент и сбрасывает все поля и кэши элемента.
func (c *Cursor) Advance() {
	if c.pos < len(c.items) {
		c.pos++
	}
	c.state.reset()
}

// All перематывает курсор и последовательно отдаёт элементы.
// Прерывание цикла оставляет курсор на последнем отданном элементе.
func (c *Cursor) All() iter.Seq2[int, *Cursor] {
	return func(yield func(int, *Cursor) bool) {
		for c.Rewind(); c.Valid(); c.Advance() {
			if !yield(c.pos, c) {
				return
			}
		}
	}
}

func (c *Cursor) navigator() xpath.NodeNavigator {
	if !c.Valid() {
		return nil
	}
	return c.items[c.pos]
}

// ID возвращает идентификатор текущего элемента (atom:id или guid).
func (c *Cursor) ID() string {
	return c.memoString(&c.state.id, c.feed.v.itemID)
}

// Title возвращает заголовок текущего элемента.
func (c *Cursor) Title() string {
	return c.memoString(&c.state.title, c.feed.v.itemTitle)
}

// URL возвращает ссылку текущего элемента.
func (c *Cursor) URL() string {
	return c.memoString(&c.state.url, c.feed.v.itemURL)
}

// Posted возвращает время публикации в секундах Unix либо domain.PostedUnknown.
func (c *Cursor) Posted() int64 {
	if c.state.posted == nil {
		raw, _ := c.feed.xpaths.value(c.feed.v.itemPosted, c.navigator())
		posted := ParseTimestamp(raw)
		c.state.posted = &posted
	}
	return *c.state.posted
}

// XPath возвращает строковое значение первого совпадения выражения относительно
// текущего элемента. Результат кэшируется до следующего Advance.
func (c *Cursor) XPath(expr string) string {
	if v, ok := c.state.values[expr]; ok {
		return v
	}
	v, _ := c.feed.xpaths.value(expr, c.navigator())
	if c.state.values == nil {
		c.state.values = make(map[string]string)
	}
	c.state.values[expr] = v
	return v
}

// TestXPath сообщает, нашёл ли запрос хотя бы один узел в текущем элементе.
// Кэш проверок независим от кэша значений.
func (c *Cursor) TestXPath(expr string) bool {
	if v, ok := c.state.exists[expr]; ok {
		return v
	}
	v := c.feed.xpaths.exists(expr, c.navigator())
	if c.state.exists == nil {
		c.state.exists = make(map[string]bool)
	}
	c.state.exists[expr] = v
	return v
}

// Snapshot собирает поля текущего элемента через мемоизированные аксессоры.
func (c *Cursor) Snapshot() domain.Item {
	return domain.Item{
		ID:     c.ID(),
		Title:  c.Title(),
		Link:   c.URL(),
		Posted: c.Posted(),
	}
}

func (c *Cursor) memoString(slot **string, expr string) string {
	if *slot == nil {
		v, _ := c.feed.xpaths.value(expr, c.navigator())
		*slot = &v
	}
	return **slot
}
