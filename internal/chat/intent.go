package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type intent string

const (
	intentFinance intent = "finance"
	intentTech    intent = "tech"
	intentGovt    intent = "govt"
	intentGeneral intent = "general"
)

var financeKeywords = []string{
	"credit card", "cashback", "reward", "upi", "bank", "card", "emi",
	"hdfc", "icici", "axis", "amex", "sbi", "rupay", "paytm", "gpay",
	"interest rate", "fd", "loan", "insurance", "invest",
}

var techKeywords = []string{
	"ai", "llm", "ml", "model", "gpt", "claude", "python", "data science",
	"machine learning", "framework", "langchain", "agent", "openai",
	"huggingface", "job", "salary", "interview", "resume",
}

var govtKeywords = []string{
	"tax", "itr", "gst", "income tax", "scheme", "subsidy", "telangana",
	"hyderabad", "govt", "government", "pib", "rbi", "budget", "rebate",
}

func detectIntent(text string) intent {
	t := strings.ToLower(text)
	for _, k := range financeKeywords {
		if strings.Contains(t, k) {
			return intentFinance
		}
	}
	for _, k := range techKeywords {
		if strings.Contains(t, k) {
			return intentTech
		}
	}
	for _, k := range govtKeywords {
		if strings.Contains(t, k) {
			return intentGovt
		}
	}
	return intentGeneral
}

// buildQueries turns one user question into two or three targeted search
// queries. Finance gets a site-scoped variant because card comparison
// sites answer those questions far better than general news.
func buildQueries(msg string, kind intent, year int) []string {
	msg = strings.TrimSpace(msg)

	switch kind {
	case intentFinance:
		return []string{
			fmt.Sprintf("%s India %d", msg, year),
			fmt.Sprintf("best %s HDFC ICICI Axis SBI cashback India %d", msg, year),
			msg + " site:cardinsider.com OR site:bankbazaar.com OR site:cardexpert.in",
		}
	case intentTech:
		return []string{
			fmt.Sprintf("%s %d", msg, year),
			msg + " latest announcement release",
		}
	case intentGovt:
		return []string{
			fmt.Sprintf("%s India official %d", msg, year),
			msg + " Hyderabad Telangana",
		}
	default:
		return []string{
			fmt.Sprintf("%s India %d", msg, year),
			msg,
		}
	}
}

var itemRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:item|number|#|article|point)\s*(\d+)\b`),
	regexp.MustCompile(`(?i)\b(?:more about|explain|tell me about|details? (?:on|of|about))\s+(?:item\s*)?(\d+)\b`),
	regexp.MustCompile(`(?i)\b(\d+)(?:st|nd|rd|th)?\s+(?:item|article|point|one)\b`),
}

// extractItemRef finds a digest item reference like "more about item 2"
// or "explain 3". Returns 0 when the text references no item.
func extractItemRef(text string) int {
	for _, re := range itemRefPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n >= 1 {
				return n
			}
		}
	}
	return 0
}
