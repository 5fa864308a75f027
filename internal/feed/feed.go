package feed

import (
	"feedrender/internal/domain"

	"github.com/antchfx/xmlquery"
	platformerrors "github.com/jmgilman/go/errors"
)

// AtomNamespace - пространство имён Atom 1.0.
const AtomNamespace = "http://www.w3.org/2005/Atom"

// Kind определяет тип ленты.
type Kind int

const (
	KindUnknown Kind = iota
	KindAtom
	KindRSS
)

func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindRSS:
		return "rss"
	default:
		return "unknown"
	}
}

// variant описывает пути XPath, специфичные для типа ленты.
// Общая логика мемоизации живёт в Feed и Cursor и одинакова для всех типов.
type variant struct {
	kind       Kind
	namespaces map[string]string
	items      string
	title      string
	itemID     string
	itemTitle  string
	itemURL    string
	itemPosted string
}

var variants = map[Kind]*variant{
	KindAtom: {
		kind:       KindAtom,
		namespaces: map[string]string{"atom": AtomNamespace},
		items:      "/atom:feed/atom:entry",
		title:      "/atom:feed/atom:title",
		itemID:     "./atom:id",
		itemTitle:  "./atom:title",
		itemURL:    "./atom:link/@href",
		itemPosted: "./atom:published",
	},
	KindRSS: {
		kind:       KindRSS,
		namespaces: map[string]string{},
		items:      "/rss/channel/item",
		title:      "/rss/channel/title",
		itemID:     "./guid",
		itemTitle:  "./title",
		itemURL:    "./link",
		itemPosted: "./pubDate",
	},
}

// Feed - нормализованное представление разобранной Atom- или RSS-ленты.
// Feed владеет документом и курсором по элементам. Feed не безопасен для
// конкурентного использования: он живёт в рамках одного прохода рендеринга.
type Feed struct {
	doc    *xmlquery.Node
	v      *variant
	title  *string
	cursor *Cursor
	xpaths *exprCache
}

// New определяет тип документа и строит для него Feed.
// Возвращает ошибку с кодом UNKNOWN_FEED_TYPE, если корневой элемент не распознан.
func New(doc *xmlquery.Node) (*Feed, error) {
	kind := Detect(doc)
	v, ok := variants[kind]
	if !ok {
		name := ""
		if root := rootElement(doc); root != nil {
			name = root.Data
		}
		err := platformerrors.Newf(domain.CodeUnknownFeedType, "unknown feed type with root element %q", name)
		return nil, err
	}
	return &Feed{
		doc:    doc,
		v:      v,
		xpaths: newExprCache(v.namespaces),
	}, nil
}

// Detect определяет тип ленты по корневому элементу и объявленным пространствам имён.
// Atom: корень feed и среди пространств имён документа есть Atom. RSS: корень rss.
func Detect(doc *xmlquery.Node) Kind {
	root := rootElement(doc)
	if root == nil {
		return KindUnknown
	}
	switch {
	case root.Data == "feed" && declaresNamespace(root, AtomNamespace):
		return KindAtom
	case root.Data == "rss":
		return KindRSS
	default:
		return KindUnknown
	}
}

// Kind возвращает тип ленты.
func (f *Feed) Kind() Kind {
	return f.v.kind
}

// Namespaces возвращает привязки префиксов, зарегистрированные для XPath.
func (f *Feed) Namespaces() map[string]string {
	out := make(map[string]string, len(f.v.namespaces))
	for k, v := range f.v.namespaces {
		out[k] = v
	}
	return out
}

// Document возвращает корень разобранного документа.
func (f *Feed) Document() *xmlquery.Node {
	return f.doc
}

// Title возвращает заголовок ленты. Значение вычисляется один раз.
func (f *Feed) Title() string {
	if f.title == nil {
		title, _ := f.xpaths.value(f.v.title, documentNavigator(f.doc))
		f.title = &title
	}
	return *f.title
}

// Cursor возвращает курсор ленты. Курсор один на Feed, поэтому все аксессоры,
// обращающиеся к активной ленте, видят один и тот же текущий элемент.
// Перед первым использованием курсор нужно перемотать через Rewind.
func (f *Feed) Cursor() *Cursor {
	if f.cursor == nil {
		f.cursor = &Cursor{feed: f}
	}
	return f.cursor
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == xmlquery.ElementNode {
		return doc
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

func declaresNamespace(el *xmlquery.Node, uri string) bool {
	if el.NamespaceURI == uri {
		return true
	}
	for _, attr := range el.Attr {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			if attr.Value == uri {
				return true
			}
		}
	}
	return false
}
