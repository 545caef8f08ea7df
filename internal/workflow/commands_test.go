package workflow

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		verb Verb
		idx  int
		arg  string
	}{
		{"YES", VerbApprove, 0, ""},
		{"  yes ", VerbApprove, 0, ""},
		{"No", VerbReject, 0, ""},
		{"SKIP", VerbSkip, 0, ""},
		{"details 3", VerbDetails, 3, ""},
		{"Details 1", VerbDetails, 1, ""},
		{"/details 2", VerbDetails, 2, ""},
		{"feedback 2 too many crypto stories", VerbFeedback, 2, "too many crypto stories"},
		{"/refresh", VerbRefresh, 0, ""},
		{"/refresh@newshound_bot", VerbRefresh, 0, ""},
		{"refresh", VerbRefresh, 0, ""},
		{"/status", VerbStatus, 0, ""},
		{"status", VerbStatus, 0, ""},
		{"/history", VerbHistory, 0, ""},
		{"/top", VerbTop, 0, ""},
		{"/search upi fraud", VerbSearch, 0, "upi fraud"},
		{"/clear", VerbClear, 0, ""},
		{"/help", VerbHelp, 0, ""},
		{"help", VerbHelp, 0, ""},
		{"/start", VerbStart, 0, ""},
		// malformed structured commands fall through to chat
		{"details", VerbChat, 0, "details"},
		{"details abc", VerbChat, 0, "details abc"},
		{"details 0", VerbChat, 0, "details 0"},
		{"feedback 2", VerbChat, 0, "feedback 2"},
		{"/search", VerbChat, 0, "/search"},
		{"yes please", VerbChat, 0, "yes please"},
		{"what happened with UPI today?", VerbChat, 0, "what happened with UPI today?"},
		{"", VerbChat, 0, ""},
	}

	for _, tt := range tests {
		got := Parse(tt.in)
		if got.Verb != tt.verb || got.Index != tt.idx || got.Arg != tt.arg {
			t.Errorf("Parse(%q) = {%s %d %q}, want {%s %d %q}",
				tt.in, got.Verb, got.Index, got.Arg, tt.verb, tt.idx, tt.arg)
		}
	}
}
