package feed

import (
	"fmt"
	"math"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// exprCache хранит скомпилированные выражения XPath с привязкой пространств имён ленты.
// Компиляция не зависит от текущего элемента, поэтому кэш живёт столько же, сколько Feed.
type exprCache struct {
	namespaces map[string]string
	compiled   map[string]compiledExpr
}

type compiledExpr struct {
	expr *xpath.Expr
	err  error
}

func newExprCache(namespaces map[string]string) *exprCache {
	return &exprCache{
		namespaces: namespaces,
		compiled:   make(map[string]compiledExpr),
	}
}

func (c *exprCache) compile(expr string) (*xpath.Expr, error) {
	if ce, ok := c.compiled[expr]; ok {
		return ce.expr, ce.err
	}
	compiled, err := xpath.CompileWithNS(expr, c.namespaces)
	if err != nil {
		err = fmt.Errorf("failed to compile xpath %q: %w", expr, err)
	}
	c.compiled[expr] = compiledExpr{expr: compiled, err: err}
	return compiled, err
}

// evaluate выполняет выражение относительно позиции навигатора.
// Паника внутри вычислителя превращается в ошибку: извлечение полей не должно ронять рендеринг.
func (c *exprCache) evaluate(expr string, nav xpath.NodeNavigator) (result any, err error) {
	if nav == nil {
		return nil, fmt.Errorf("no context node for xpath %q", expr)
	}
	compiled, err := c.compile(expr)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("failed to evaluate xpath %q: %v", expr, r)
		}
	}()
	return compiled.Evaluate(nav.Copy()), nil
}

// value возвращает строковое значение первого совпадения, либо "" если совпадений нет.
// Скалярные результаты (count(), string() и т.п.) приводятся к строке.
func (c *exprCache) value(expr string, nav xpath.NodeNavigator) (string, bool) {
	result, err := c.evaluate(expr, nav)
	if err != nil {
		return "", false
	}
	switch v := result.(type) {
	case *xpath.NodeIterator:
		if v.MoveNext() {
			return v.Current().Value(), true
		}
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		if math.IsNaN(v) {
			return "NaN", true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// exists сообщает, вернул ли запрос хотя бы один узел.
// Булев результат учитывается как есть, прочие скаляры и ошибки считаются отсутствием.
func (c *exprCache) exists(expr string, nav xpath.NodeNavigator) bool {
	result, err := c.evaluate(expr, nav)
	if err != nil {
		return false
	}
	switch v := result.(type) {
	case *xpath.NodeIterator:
		return v.MoveNext()
	case bool:
		return v
	default:
		return false
	}
}

// selectAll возвращает навигаторы, установленные на каждый узел результата, в порядке документа.
// Корнем каждого навигатора остаётся документ, поэтому абсолютные пути работают и от элемента.
func (c *exprCache) selectAll(expr string, nav xpath.NodeNavigator) []*xmlquery.NodeNavigator {
	result, err := c.evaluate(expr, nav)
	if err != nil {
		return nil
	}
	it, ok := result.(*xpath.NodeIterator)
	if !ok {
		return nil
	}
	var out []*xmlquery.NodeNavigator
	for it.MoveNext() {
		if n, ok := it.Current().Copy().(*xmlquery.NodeNavigator); ok {
			out = append(out, n)
		}
	}
	return out
}

func documentNavigator(doc *xmlquery.Node) xpath.NodeNavigator {
	if doc == nil {
		return nil
	}
	return xmlquery.CreateXPathNavigator(doc)
}
