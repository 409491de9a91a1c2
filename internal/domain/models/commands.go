package models

import "strings"

// CommandType enumerates the text commands operators can send over WhatsApp.
type CommandType string

const (
	CommandFeed    CommandType = "feed"
	CommandNote    CommandType = "note"
	CommandTreat   CommandType = "treat"
	CommandStatus  CommandType = "status"
	CommandFlagged CommandType = "flagged"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// commandAliases maps accepted spellings to their command.
var commandAliases = map[string]CommandType{
	"feed":      CommandFeed,
	"f":         CommandFeed,
	"note":      CommandNote,
	"notes":     CommandNote,
	"treat":     CommandTreat,
	"treatment": CommandTreat,
	"status":    CommandStatus,
	"s":         CommandStatus,
	"flagged":   CommandFlagged,
	"flags":     CommandFlagged,
	"help":      CommandHelp,
	"?":         CommandHelp,
}

// Command represents a parsed operator instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages. The
// command word is case-insensitive; arguments keep their original case so notes
// are stored as typed.
func ParseCommand(message string) Command {
	cmd := Command{Raw: message}

	tokens := strings.Fields(strings.TrimSpace(message))
	if len(tokens) == 0 {
		cmd.Type = CommandUnknown
		return cmd
	}

	head := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	if t, ok := commandAliases[head]; ok {
		cmd.Type = t
	} else {
		cmd.Type = CommandUnknown
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
