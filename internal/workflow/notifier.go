package workflow

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/user/newshound/internal/digest"
	"github.com/user/newshound/internal/types"
)

// PipelineCompleted installs the new pending digest for its conversation
// and pushes the rendered digest. A digest still pending from an earlier
// run is expired first so at most one decision is ever open per chat.
func (w *Workflow) PipelineCompleted(ctx context.Context, d *types.Digest, articles []*types.Article) error {
	lock := w.chatLock(d.ChatID)
	lock.Lock()

	conv, err := w.store.Conversation(ctx, d.ChatID)
	if err != nil {
		lock.Unlock()
		return fmt.Errorf("load conversation: %w", err)
	}

	now := time.Now().UTC()
	if conv.Awaiting() && conv.PendingDigestID != d.ID {
		if old, derr := w.store.Digest(ctx, conv.PendingDigestID); derr == nil && old.Status == types.DigestPending {
			old.Status = types.DigestExpired
			old.DecidedAt = &now
			if serr := w.store.SaveDigest(ctx, old); serr != nil {
				w.logger.Warn("Expiring superseded digest failed", "digest_id", old.ID, "error", serr)
			} else {
				w.logger.Info("Expired superseded digest", "digest_id", old.ID, "chat_id", d.ChatID)
			}
		}
	}

	conv.PendingDigestID = d.ID
	conv.LastActivityAt = now
	if err := w.store.SaveConversation(ctx, conv); err != nil {
		lock.Unlock()
		return fmt.Errorf("save conversation: %w", err)
	}
	lock.Unlock()

	if w.sender == nil {
		return nil
	}
	return w.sender.Send(ctx, d.ChatID, digest.RenderHTML(articles))
}

// PipelineEmpty tells the conversation a run finished with nothing worth
// a digest.
func (w *Workflow) PipelineEmpty(ctx context.Context, run *types.AgentRun) error {
	if w.sender == nil {
		return nil
	}
	msg := fmt.Sprintf("Run finished: %d articles checked, nothing new made the cut today.",
		run.Counters.Fetched)
	return w.sender.Send(ctx, w.notifyChat, msg)
}

// PipelineFailed surfaces a fatal run failure. The wording must stay
// distinguishable from the empty-run notice.
func (w *Workflow) PipelineFailed(ctx context.Context, run *types.AgentRun) error {
	if w.sender == nil {
		return nil
	}
	msg := fmt.Sprintf("⚠️ Run failed: %s\nAnything fetched before the failure is kept. Try /refresh in a bit.",
		html.EscapeString(run.ErrorMessage))
	return w.sender.Send(ctx, w.notifyChat, msg)
}
