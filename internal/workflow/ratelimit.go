package workflow

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/newshound/internal/types"
)

// DefaultMessageInterval is the minimum spacing between handled messages
// per conversation.
const DefaultMessageInterval = 3 * time.Second

const limiterTTL = 10 * time.Minute

type chatLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ChatLimiter enforces a per-conversation message rate, one token every
// interval with burst 1. Idle entries are dropped on the fly.
type ChatLimiter struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[types.ChatID]*chatLimiter
}

func NewChatLimiter(interval time.Duration) *ChatLimiter {
	if interval <= 0 {
		interval = DefaultMessageInterval
	}
	return &ChatLimiter{
		interval: interval,
		limiters: make(map[types.ChatID]*chatLimiter),
	}
}

// Allow reports whether the chat may send a message now.
func (cl *ChatLimiter) Allow(chat types.ChatID) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	cl.sweep(now)

	entry, ok := cl.limiters[chat]
	if !ok {
		entry = &chatLimiter{limiter: rate.NewLimiter(rate.Every(cl.interval), 1)}
		cl.limiters[chat] = entry
	}
	entry.lastAccess = now
	return entry.limiter.Allow()
}

func (cl *ChatLimiter) sweep(now time.Time) {
	for chat, entry := range cl.limiters {
		if now.Sub(entry.lastAccess) > limiterTTL {
			delete(cl.limiters, chat)
		}
	}
}
