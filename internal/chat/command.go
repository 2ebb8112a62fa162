package chat

import "strings"

// CommandKind classifies a line of user input.
type CommandKind int

const (
	CmdEmpty CommandKind = iota
	CmdMessage
	CmdExit
	CmdReset
	CmdModel
	CmdHelp
)

// Command is a parsed input line. Arg holds the message text or the model name.
type Command struct {
	Kind CommandKind
	Arg  string
}

// HelpText lists the commands understood by ParseCommand.
const HelpText = `Commands:
  exit, quit     end the conversation
  /reset         forget the conversation so far
  /model NAME    switch to another model (starts a new conversation)
  /help          show this help`

// ParseCommand interprets one line of input. Keywords are case-insensitive.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: CmdEmpty}
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "exit", "quit":
		if len(fields) == 1 {
			return Command{Kind: CmdExit}
		}
	case "/reset":
		return Command{Kind: CmdReset}
	case "/help":
		return Command{Kind: CmdHelp}
	case "/model":
		return Command{Kind: CmdModel, Arg: strings.TrimSpace(line[len(fields[0]):])}
	}
	return Command{Kind: CmdMessage, Arg: line}
}
