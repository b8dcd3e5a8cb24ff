package bot

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/handler"
)

// DefaultAdminCacheTTL is how long a chat-admin lookup is reused.
const DefaultAdminCacheTTL = 5 * time.Minute

// MemberLookup reports whether user administers chat.
type MemberLookup func(chat *tele.Chat, user *tele.User) (bool, error)

type adminKey struct {
	chatID int64
	userID int64
}

type adminEntry struct {
	isAdmin bool
	at      time.Time
}

// AdminResolver decides whether a user has administrator rights in a chat.
// Bot-wide administrators from the configuration pass everywhere; chat
// owners and administrators pass in their own chat.
type AdminResolver struct {
	cfg    *config.Config
	lookup MemberLookup
	ttl    time.Duration
	now    func() time.Time
	cache  sync.Map // adminKey -> adminEntry
}

// NewAdminResolver creates an AdminResolver. A nil lookup only honours the
// configured ids.
func NewAdminResolver(cfg *config.Config, lookup MemberLookup, ttl time.Duration) *AdminResolver {
	return &AdminResolver{cfg: cfg, lookup: lookup, ttl: ttl, now: time.Now}
}

// ChatAdminLookup returns a MemberLookup backed by getChatMember.
func ChatAdminLookup(b *tele.Bot) MemberLookup {
	return func(chat *tele.Chat, user *tele.User) (bool, error) {
		m, err := b.ChatMemberOf(chat, user)
		if err != nil {
			return false, err
		}
		return m.Role == tele.Administrator || m.Role == tele.Creator, nil
	}
}

// IsAdmin implements the check. Lookup failures deny and are not cached.
func (r *AdminResolver) IsAdmin(chat *tele.Chat, user *tele.User) bool {
	if user == nil {
		return false
	}
	if r.cfg.IsAdmin(user.ID) {
		return true
	}
	if r.lookup == nil || chat == nil || chat.Type == tele.ChatPrivate {
		return false
	}

	key := adminKey{chat.ID, user.ID}
	if v, ok := r.cache.Load(key); ok {
		e := v.(adminEntry)
		if r.now().Sub(e.at) < r.ttl {
			return e.isAdmin
		}
	}

	isAdmin, err := r.lookup(chat, user)
	if err != nil {
		log.Warn().Err(err).
			Int64("chat_id", chat.ID).
			Int64("user_id", user.ID).
			Msg("Failed to look up chat member")
		return false
	}
	r.cache.Store(key, adminEntry{isAdmin: isAdmin, at: r.now()})
	return isAdmin
}

// CallerMiddleware resolves who is calling and from where, and stores it
// for the handlers.
func CallerMiddleware(r *AdminResolver) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil {
				return nil
			}
			c.Set(handler.CallerKey, handler.BuildCaller(c, r.IsAdmin(c.Chat(), c.Sender())))
			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Something went wrong. Please try again later.")
				}
			}()
			return next(c)
		}
	}
}
