package chat

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"", Command{Kind: CmdEmpty}},
		{"   ", Command{Kind: CmdEmpty}},
		{"exit", Command{Kind: CmdExit}},
		{"  EXIT ", Command{Kind: CmdExit}},
		{"Quit", Command{Kind: CmdExit}},
		{"exit strategies for startups", Command{Kind: CmdMessage, Arg: "exit strategies for startups"}},
		{"/reset", Command{Kind: CmdReset}},
		{"/RESET", Command{Kind: CmdReset}},
		{"/help", Command{Kind: CmdHelp}},
		{"/model gemini-1.5-flash", Command{Kind: CmdModel, Arg: "gemini-1.5-flash"}},
		{"/model", Command{Kind: CmdModel}},
		{"  hello there  ", Command{Kind: CmdMessage, Arg: "hello there"}},
		{"/unknown", Command{Kind: CmdMessage, Arg: "/unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseCommand(tt.in); got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
