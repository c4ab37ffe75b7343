package editor

import (
	"strings"

	"transcription-editor/pkg/block"
)

// Command names one entry point of the session.
type Command string

const (
	CmdNewBlock Command = "new_block"
	CmdEdit     Command = "edit"
	CmdAppend   Command = "append"
	CmdDelete   Command = "delete"
	CmdMoveUp   Command = "move_up"
	CmdMoveDown Command = "move_down"
	CmdUndo     Command = "undo"
	CmdRedo     Command = "redo"
	CmdSave     Command = "save"
)

// Commands lists every command a dispatcher can send.
func Commands() []Command {
	return []Command{CmdNewBlock, CmdEdit, CmdAppend, CmdDelete, CmdMoveUp, CmdMoveDown, CmdUndo, CmdRedo, CmdSave}
}

// Shortcut binds a key chord to a command. BlockType is set for new_block.
type Shortcut struct {
	Keys      string      `json:"keys"`
	Command   Command     `json:"command"`
	BlockType *block.Type `json:"block_type,omitempty"`
}

const modifiers = "ctrl+alt+"

func newBlockKey(key string, t block.Type) Shortcut {
	return Shortcut{Keys: modifiers + key, Command: CmdNewBlock, BlockType: &t}
}

// Shortcuts returns the keyboard table. Every chord is ctrl+alt plus one key.
func Shortcuts() []Shortcut {
	return []Shortcut{
		{Keys: modifiers + "s", Command: CmdSave},
		{Keys: modifiers + "z", Command: CmdUndo},
		{Keys: modifiers + "r", Command: CmdRedo},
		newBlockKey("t", block.TypeText),
		newBlockKey("a", block.TypeAbbreviation),
		newBlockKey("u", block.TypeUncertain),
		newBlockKey("l", block.TypeLacuna),
		newBlockKey("c", block.TypeCorrection),
		newBlockKey("v", block.TypeAnchor),
		newBlockKey("space", block.TypeSpace),
		newBlockKey("enter", block.TypeBreak),
	}
}

// LookupShortcut finds the binding for a chord such as "Ctrl+Alt+U".
// Modifier order and case do not matter.
func LookupShortcut(keys string) (Shortcut, bool) {
	want := normalizeChord(keys)
	for _, sc := range Shortcuts() {
		if sc.Keys == want {
			return sc, true
		}
	}
	return Shortcut{}, false
}

func normalizeChord(keys string) string {
	var ctrl, alt bool
	var key string
	for _, part := range strings.Split(strings.ToLower(strings.ReplaceAll(keys, " ", "")), "+") {
		switch part {
		case "ctrl", "control":
			ctrl = true
		case "alt", "option":
			alt = true
		case "":
			// "ctrl+alt+ " collapses to a trailing empty part
			key = "space"
		case "return":
			key = "enter"
		default:
			key = part
		}
	}
	if !ctrl || !alt || key == "" {
		return ""
	}
	return modifiers + key
}
