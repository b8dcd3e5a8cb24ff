package bot

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"casino-bot/internal/config"
	"casino-bot/internal/handler"
	"casino-bot/internal/model"
)

// TestConfiguredAdminProperty checks that configured ids are administrators
// everywhere and that nobody else is without a lookup.
func TestConfiguredAdminProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 1, 10).Draw(t, "adminIDs")
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		chatID := -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")

		r := NewAdminResolver(&config.Config{Admin: config.AdminConfig{IDs: adminIDs}}, nil, time.Minute)
		chat := &tele.Chat{ID: chatID, Type: tele.ChatSuperGroup}

		got := r.IsAdmin(chat, &tele.User{ID: userID})
		if want := slices.Contains(adminIDs, userID); got != want {
			t.Fatalf("user %d with admins %v: got %v, want %v", userID, adminIDs, got, want)
		}

		known := adminIDs[rapid.IntRange(0, len(adminIDs)-1).Draw(t, "index")]
		if !r.IsAdmin(&tele.Chat{ID: known, Type: tele.ChatPrivate}, &tele.User{ID: known}) {
			t.Fatalf("configured admin %d denied in private chat", known)
		}
	})
}

// TestChatAdminLookupProperty checks that chat administrators are recognized
// only in the chat they administer.
func TestChatAdminLookupProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ownChat := -rapid.Int64Range(1, 1000).Draw(t, "ownChat")
		otherChat := -rapid.Int64Range(1001, 2000).Draw(t, "otherChat")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		lookup := func(chat *tele.Chat, user *tele.User) (bool, error) {
			return chat.ID == ownChat && user.ID == userID, nil
		}
		r := NewAdminResolver(&config.Config{}, lookup, time.Minute)
		user := &tele.User{ID: userID}

		if !r.IsAdmin(&tele.Chat{ID: ownChat, Type: tele.ChatGroup}, user) {
			t.Fatal("chat admin denied in own chat")
		}
		if r.IsAdmin(&tele.Chat{ID: otherChat, Type: tele.ChatGroup}, user) {
			t.Fatal("chat admin accepted in another chat")
		}
		if r.IsAdmin(&tele.Chat{ID: userID, Type: tele.ChatPrivate}, user) {
			t.Fatal("lookup must not apply to private chats")
		}
	})
}

func TestAdminResolver_Cache(t *testing.T) {
	calls := 0
	fail := false
	lookup := func(*tele.Chat, *tele.User) (bool, error) {
		calls++
		if fail {
			return false, errors.New("telegram unavailable")
		}
		return true, nil
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewAdminResolver(&config.Config{}, lookup, time.Minute)
	r.now = func() time.Time { return now }
	chat := &tele.Chat{ID: -1, Type: tele.ChatSuperGroup}
	user := &tele.User{ID: 2}

	assert.True(t, r.IsAdmin(chat, user))
	assert.True(t, r.IsAdmin(chat, user))
	assert.Equal(t, 1, calls)

	now = now.Add(time.Minute)
	fail = true
	assert.False(t, r.IsAdmin(chat, user))
	assert.False(t, r.IsAdmin(chat, user), "failures are not cached")
	assert.Equal(t, 3, calls)
}

// middlewareContext is a minimal tele.Context for middleware tests.
type middlewareContext struct {
	tele.Context
	sender *tele.User
	chat   *tele.Chat
	msg    *tele.Message
	store  map[string]interface{}
}

func (m *middlewareContext) Sender() *tele.User             { return m.sender }
func (m *middlewareContext) Chat() *tele.Chat               { return m.chat }
func (m *middlewareContext) Message() *tele.Message         { return m.msg }
func (m *middlewareContext) Get(key string) interface{}     { return m.store[key] }
func (m *middlewareContext) Set(key string, v interface{})  { m.store[key] = v }

func TestCallerMiddleware(t *testing.T) {
	r := NewAdminResolver(&config.Config{Admin: config.AdminConfig{IDs: []int64{7}}}, nil, time.Minute)
	chat := &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}

	var got model.Caller
	next := func(c tele.Context) error {
		got = handler.CallerFrom(c)
		return nil
	}

	c := &middlewareContext{
		sender: &tele.User{ID: 7},
		chat:   chat,
		msg:    &tele.Message{Chat: chat, ThreadID: 33},
		store:  map[string]interface{}{},
	}
	require.NoError(t, CallerMiddleware(r)(next)(c))
	assert.Equal(t, model.Caller{UserID: 7, GuildID: -100, ChannelID: 33, IsAdmin: true}, got)

	c.sender = &tele.User{ID: 8}
	c.store = map[string]interface{}{}
	require.NoError(t, CallerMiddleware(r)(next)(c))
	assert.False(t, got.IsAdmin)
	assert.Equal(t, int64(8), got.UserID)
}
