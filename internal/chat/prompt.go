package chat

import (
	"fmt"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/pkg/llm"
)

// systemPrompt pins the assistant to its reader and bans the generic
// filler answers chat models default to.
const systemPrompt = `You are a personal news assistant for a specific person. Know them well:
- Data scientist in Hyderabad tracking Indian fintech, AI/ML, and government policy
- Cares about UPI, credit card rewards, bank offers, tax rules, and new AI tooling
- Cards likely owned: HDFC, ICICI, Axis, possibly Amex or SBI

Rules, never break these:

1. EXTRACT FROM SEARCH RESULTS FIRST. The search results in the message are
   real and current. Pull out card names, exact percentages, platforms,
   deadlines, caps. Use those as your answer.
2. BE SPECIFIC. "HDFC Millennia gives 5% on Swiggy capped at 1000/month" beats
   "some cards offer cashback on food delivery" every time.
3. CITE INLINE. When stating a fact from a result, name the source in the
   sentence. Do not dump bare links.
4. ADMIT GAPS. If the results do not cover something, say so, then answer from
   general knowledge and mark it as such. Never invent numbers.
5. TELEGRAM FORMAT. Use <b>bold</b> for card names and key numbers, bullet
   points for comparisons, at most 350 words unless asked for a deep dive.
   No filler phrases like "It's worth noting" or "In conclusion".`

// promptBuilder assembles token-budgeted prompts, dropping the oldest
// history turns first when the conversation would not fit.
type promptBuilder struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

func newPromptBuilder(model string, maxTokens, reserve int) (*promptBuilder, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &promptBuilder{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

func (b *promptBuilder) countTokens(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

// build assembles system + history + user turn. The system prompt and the
// user turn always ship; history fills whatever budget remains, newest
// turns kept first.
func (b *promptBuilder) build(system string, history []*types.ChatMessage, userTurn string) []llm.Message {
	budget := b.maxTokens - b.reserve
	budget -= b.countTokens(system)
	budget -= b.countTokens(userTurn)

	var kept []*types.ChatMessage
	for i := len(history) - 1; i >= 0; i-- {
		cost := b.countTokens(history[i].Content)
		if cost > budget {
			break
		}
		budget -= cost
		kept = append(kept, history[i])
	}

	messages := make([]llm.Message, 0, len(kept)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for i := len(kept) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{Role: kept[i].Role, Content: kept[i].Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userTurn})
	return messages
}

func currentYear() int {
	return time.Now().Year()
}
