// Package session хранит ленту, которая рендерится в текущем проходе.
//
// State создаётся на каждый проход рендеринга (запрос) и передаётся через
// context.Context. Один State нельзя делить между конкурентными запросами:
// запрет вложенности опирается на то, что слот принадлежит одному проходу.
package session

import (
	"context"

	"feedrender/internal/domain"
	"feedrender/internal/feed"

	platformerrors "github.com/jmgilman/go/errors"
)

// ErrAlreadyActive возвращается при попытке войти в ленту, когда другая уже активна.
var ErrAlreadyActive = platformerrors.New(domain.CodeNesting, "a feed is already being rendered")

// State - слот для активной ленты.
type State struct {
	feed *feed.Feed
}

// New создаёт пустое состояние.
func New() *State {
	return &State{}
}

// Enter делает ленту активной. Если лента уже активна, слот не меняется.
func (s *State) Enter(f *feed.Feed) error {
	if s.feed != nil {
		return ErrAlreadyActive
	}
	s.feed = f
	return nil
}

// Exit безусловно очищает слот.
func (s *State) Exit() {
	s.feed = nil
}

// Active возвращает активную ленту.
func (s *State) Active() (*feed.Feed, bool) {
	if s == nil || s.feed == nil {
		return nil, false
	}
	return s.feed, true
}

// IsActive сообщает, есть ли активная лента.
func (s *State) IsActive() bool {
	_, ok := s.Active()
	return ok
}

// Scope входит в ленту, вызывает fn и выходит из неё на любом пути выхода,
// включая панику внутри fn.
func (s *State) Scope(f *feed.Feed, fn func(*feed.Feed) error) error {
	if err := s.Enter(f); err != nil {
		return err
	}
	defer s.Exit()
	return fn(f)
}

type ctxKey struct{}

// NewContext кладёт состояние в контекст прохода рендеринга.
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext достаёт состояние из контекста. Возвращает nil, если его нет.
func FromContext(ctx context.Context) *State {
	s, _ := ctx.Value(ctxKey{}).(*State)
	return s
}
