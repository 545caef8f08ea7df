// Package workflow owns the per-conversation approval state machine and
// the command surface of the bot.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/newshound/internal/metrics"
	"github.com/user/newshound/internal/types"
)

// Store is the persistence surface the workflow needs.
type Store interface {
	types.ArticleStore
	types.RunStore
	types.DigestStore
	types.ConversationStore
}

// Searcher answers /search queries. The index-backed implementation falls
// back to a store scan on empty results.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]*types.Article, error)
}

// Runner starts pipeline runs. Trigger must reject a concurrent start
// with ErrRunInProgress.
type Runner interface {
	Trigger(ctx context.Context) (types.RunID, error)
}

// Assistant answers free text that is not a command.
type Assistant interface {
	Reply(ctx context.Context, chat types.ChatID, text string) (string, error)
}

// Sender delivers proactive messages (digest pushes, run notices) to a
// conversation. Replies to inbound messages do not go through it.
type Sender interface {
	Send(ctx context.Context, chat types.ChatID, html string) error
}

// Workflow routes inbound messages through the approval state machine and
// receives pipeline outcomes for delivery.
type Workflow struct {
	store     Store
	searcher  Searcher
	runner    Runner
	assistant Assistant
	sender    Sender
	limiter   *ChatLimiter
	metrics   *metrics.Collector
	logger    *slog.Logger

	// notifyChat receives run-level notices that carry no conversation of
	// their own (empty and failed runs).
	notifyChat types.ChatID

	mu    sync.Mutex
	locks map[types.ChatID]*sync.Mutex
}

// Config carries the Workflow's collaborators. Searcher, Runner,
// Assistant, Sender, and Metrics may be nil; the affected commands degrade
// with an explanatory reply.
type Config struct {
	Store     Store
	Searcher  Searcher
	Runner    Runner
	Assistant Assistant
	Sender    Sender
	Chat      types.ChatID
	Limiter   *ChatLimiter
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

func New(cfg Config) *Workflow {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewChatLimiter(DefaultMessageInterval)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		store:      cfg.Store,
		searcher:   cfg.Searcher,
		runner:     cfg.Runner,
		assistant:  cfg.Assistant,
		sender:     cfg.Sender,
		limiter:    limiter,
		metrics:    cfg.Metrics,
		logger:     logger,
		notifyChat: cfg.Chat,
		locks:      make(map[types.ChatID]*sync.Mutex),
	}
}

// SetRunner binds the pipeline runner after construction. The workflow
// notifies the runner's outcomes and the runner serves /refresh, so one
// side of the cycle is wired late.
func (w *Workflow) SetRunner(r Runner) {
	w.runner = r
}

// chatLock serializes state mutation per conversation. Different chats
// never block each other.
func (w *Workflow) chatLock(chat types.ChatID) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[chat]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[chat] = lock
	}
	return lock
}

// HandleMessage processes one inbound message and returns the reply as
// Telegram HTML. It never blocks on a running pipeline.
func (w *Workflow) HandleMessage(ctx context.Context, chat types.ChatID, text string) string {
	if !w.limiter.Allow(chat) {
		return "One message every few seconds, please."
	}

	cmd := Parse(text)
	w.metrics.RecordCommand(string(cmd.Verb))
	w.logger.Debug("Inbound command", "chat_id", chat, "verb", cmd.Verb)

	switch cmd.Verb {
	case VerbApprove:
		return w.decide(ctx, chat, types.DigestApproved)
	case VerbReject, VerbSkip:
		return w.decide(ctx, chat, types.DigestRejected)
	case VerbDetails:
		return w.details(ctx, chat, cmd.Index)
	case VerbFeedback:
		return w.feedback(ctx, chat, cmd.Index, cmd.Arg)
	case VerbRefresh:
		return w.refresh(ctx)
	case VerbStatus:
		return w.status(ctx, chat)
	case VerbHistory:
		return w.history(ctx)
	case VerbTop:
		return w.top(ctx)
	case VerbSearch:
		return w.search(ctx, cmd.Arg)
	case VerbClear:
		return w.clear(ctx, chat)
	case VerbHelp:
		return helpReply
	case VerbStart:
		return startReply
	default:
		return w.chat(ctx, chat, cmd.Arg)
	}
}

// pendingDigest loads the conversation and its pending digest. A missing
// digest row clears the dangling reference.
func (w *Workflow) pendingDigest(ctx context.Context, conv *types.ConversationState) (*types.Digest, error) {
	if !conv.Awaiting() {
		return nil, nil
	}
	d, err := w.store.Digest(ctx, conv.PendingDigestID)
	if errors.Is(err, types.ErrNotFound) {
		conv.PendingDigestID = ""
		if saveErr := w.store.SaveConversation(ctx, conv); saveErr != nil {
			w.logger.Warn("Clearing dangling digest reference failed", "chat_id", conv.ChatID, "error", saveErr)
		}
		return nil, nil
	}
	return d, err
}

func (w *Workflow) decide(ctx context.Context, chat types.ChatID, status types.DigestStatus) string {
	lock := w.chatLock(chat)
	lock.Lock()
	defer lock.Unlock()

	conv, err := w.store.Conversation(ctx, chat)
	if err != nil {
		w.logger.Error("Loading conversation failed", "chat_id", chat, "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	d, err := w.pendingDigest(ctx, conv)
	if err != nil {
		w.logger.Error("Loading pending digest failed", "chat_id", chat, "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	if d == nil {
		return "No digest awaiting a decision. Use /refresh to build one."
	}

	now := time.Now().UTC()
	d.Status = status
	d.DecidedAt = &now
	if err := w.store.SaveDigest(ctx, d); err != nil {
		w.logger.Error("Saving digest decision failed", "digest_id", d.ID, "error", err)
		return "Could not record the decision, try again."
	}

	conv.PendingDigestID = ""
	conv.LastActivityAt = now
	if err := w.store.SaveConversation(ctx, conv); err != nil {
		w.logger.Error("Saving conversation failed", "chat_id", chat, "error", err)
	}

	if status == types.DigestApproved {
		return fmt.Sprintf("Digest approved, %d stories archived. See you at the next run!", len(d.Items))
	}
	return "Digest skipped. See you at the next run!"
}

func (w *Workflow) details(ctx context.Context, chat types.ChatID, n int) string {
	lock := w.chatLock(chat)
	lock.Lock()
	defer lock.Unlock()

	conv, err := w.store.Conversation(ctx, chat)
	if err != nil {
		w.logger.Error("Loading conversation failed", "chat_id", chat, "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	d, err := w.pendingDigest(ctx, conv)
	if err != nil {
		w.logger.Error("Loading pending digest failed", "chat_id", chat, "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	if d == nil {
		return outOfRangeReply(&types.CommandOutOfRangeError{Index: n, Max: 0})
	}
	if n > len(d.Items) {
		return outOfRangeReply(&types.CommandOutOfRangeError{Index: n, Max: len(d.Items)})
	}

	a, err := w.store.Article(ctx, d.Items[n-1].ArticleID)
	if err != nil {
		w.logger.Warn("Digest item article missing", "digest_id", d.ID, "index", n, "error", err)
		return fmt.Sprintf("Item %d is no longer stored.", n)
	}
	return detailsReply(n, a)
}

func (w *Workflow) feedback(ctx context.Context, chat types.ChatID, n int, text string) string {
	lock := w.chatLock(chat)
	lock.Lock()
	defer lock.Unlock()

	conv, err := w.store.Conversation(ctx, chat)
	if err != nil {
		w.logger.Error("Loading conversation failed", "chat_id", chat, "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	d, err := w.pendingDigest(ctx, conv)
	if err != nil {
		w.logger.Error("Loading pending digest failed", "chat_id", chat, "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	if d == nil {
		return outOfRangeReply(&types.CommandOutOfRangeError{Index: n, Max: 0})
	}
	if n > len(d.Items) {
		return outOfRangeReply(&types.CommandOutOfRangeError{Index: n, Max: len(d.Items)})
	}

	now := time.Now().UTC()
	conv.Feedback = append(conv.Feedback, types.FeedbackEntry{
		ArticleIndex: n,
		Text:         text,
		At:           now,
	})
	conv.LastActivityAt = now
	if err := w.store.SaveConversation(ctx, conv); err != nil {
		w.logger.Error("Saving feedback failed", "chat_id", chat, "error", err)
		return "Could not save the feedback, try again."
	}
	return fmt.Sprintf("Thanks! Feedback noted for item %d.", n)
}

func (w *Workflow) refresh(ctx context.Context) string {
	if w.runner == nil {
		return "Runs are managed externally in this deployment."
	}
	id, err := w.runner.Trigger(ctx)
	if errors.Is(err, types.ErrRunInProgress) {
		if last, lastErr := w.store.LastRun(ctx); lastErr == nil && last.Status == types.RunStatusRunning {
			return fmt.Sprintf("A run is already in progress (started %s ago). The digest will arrive when it finishes.",
				time.Since(last.StartedAt).Round(time.Second))
		}
		return "A run is already in progress. The digest will arrive when it finishes."
	}
	if err != nil {
		w.logger.Error("Triggering run failed", "error", err)
		return "Could not start the run; storage looks unavailable."
	}
	w.logger.Info("Run triggered from chat", "run_id", id)
	return "🔄 Refreshing now. Fetching the latest news from all sources; the digest arrives shortly."
}

func (w *Workflow) status(ctx context.Context, chat types.ChatID) string {
	run, err := w.store.LastRun(ctx)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		w.logger.Error("Loading last run failed", "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	pending, err := w.store.PendingDigest(ctx, chat)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		pending = nil
	}
	return statusReply(run, pending)
}

func (w *Workflow) history(ctx context.Context) string {
	digests, err := w.store.ListDigests(ctx, 7)
	if err != nil {
		w.logger.Error("Listing digests failed", "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	return historyReply(digests)
}

func (w *Workflow) top(ctx context.Context) string {
	since := time.Now().UTC().Add(-24 * time.Hour)
	articles, err := w.store.TopArticles(ctx, since, 5)
	if err != nil {
		w.logger.Error("Loading top articles failed", "error", err)
		return "Storage is unavailable right now, try again shortly."
	}
	return topReply(articles)
}

func (w *Workflow) search(ctx context.Context, query string) string {
	var (
		articles []*types.Article
		err      error
	)
	if w.searcher != nil {
		articles, err = w.searcher.Search(ctx, query, 5)
	} else {
		articles, err = w.store.SearchArticles(ctx, query, 5)
	}
	if err != nil {
		w.logger.Error("Search failed", "query", query, "error", err)
		return "Search is unavailable right now."
	}
	return searchReply(query, articles)
}

func (w *Workflow) clear(ctx context.Context, chat types.ChatID) string {
	lock := w.chatLock(chat)
	lock.Lock()
	defer lock.Unlock()

	conv, err := w.store.Conversation(ctx, chat)
	if err != nil {
		w.logger.Error("Loading conversation failed", "chat_id", chat, "error", err)
		return "Storage is unavailable right now, try again shortly."
	}

	now := time.Now().UTC()
	if conv.Awaiting() {
		if d, derr := w.store.Digest(ctx, conv.PendingDigestID); derr == nil && d.Status == types.DigestPending {
			d.Status = types.DigestExpired
			d.DecidedAt = &now
			if serr := w.store.SaveDigest(ctx, d); serr != nil {
				w.logger.Warn("Expiring digest failed", "digest_id", d.ID, "error", serr)
			}
		}
	}

	conv.PendingDigestID = ""
	conv.Feedback = nil
	conv.LastActivityAt = now
	if err := w.store.SaveConversation(ctx, conv); err != nil {
		w.logger.Error("Saving conversation failed", "chat_id", chat, "error", err)
		return "Could not clear the conversation, try again."
	}
	return "Cleared. No digest pending and feedback wiped."
}

func (w *Workflow) chat(ctx context.Context, chat types.ChatID, text string) string {
	if w.assistant == nil {
		return "I did not recognize that. Try /help for the command list."
	}
	reply, err := w.assistant.Reply(ctx, chat, text)
	if err != nil {
		w.logger.Warn("Assistant reply failed", "chat_id", chat, "error", err)
		return "The assistant is unavailable right now. /help lists what I can do."
	}
	return reply
}
