package engine

import "pinyind/internal/keys"

// Command is a composition command bound to a key.
type Command int

const (
	CmdNone Command = iota
	CmdChoose
	CmdChooseHighlighted
	CmdBufferLeft
	CmdBufferRight
	CmdHighlightPrev
	CmdHighlightNext
	CmdNextPage
	CmdPrevPage
	CmdDeleteForward
	CmdDeleteBackward
	CmdCommitRaw
	CmdCancel
)

var commandNames = map[Command]string{
	CmdNone:              "none",
	CmdChoose:            "choose",
	CmdChooseHighlighted: "choose-highlighted",
	CmdBufferLeft:        "left",
	CmdBufferRight:       "right",
	CmdHighlightPrev:     "highlight-prev",
	CmdHighlightNext:     "highlight-next",
	CmdNextPage:          "next-page",
	CmdPrevPage:          "prev-page",
	CmdDeleteForward:     "delete",
	CmdDeleteBackward:    "backspace",
	CmdCommitRaw:         "commit-raw",
	CmdCancel:            "cancel",
}

func (c Command) String() string { return commandNames[c] }

// CommandFor maps a key press during composition to a command. For
// CmdChoose, index is the zero-based candidate index on the page.
//
// Page_Up, equal and KP_Add advance to the next page; Page_Down, minus and
// KP_Subtract go back.
func CommandFor(sym keys.Sym) (cmd Command, index int) {
	if n, ok := sym.Digit(); ok {
		return CmdChoose, n - 1
	}
	switch sym {
	case keys.Space:
		return CmdChooseHighlighted, 0
	case keys.Left, keys.KPLeft:
		return CmdBufferLeft, 0
	case keys.Right, keys.KPRight:
		return CmdBufferRight, 0
	case keys.Up, keys.KPUp:
		return CmdHighlightPrev, 0
	case keys.Down, keys.KPDown:
		return CmdHighlightNext, 0
	case keys.PageUp, keys.KPPageUp, keys.Equal, keys.KPAdd:
		return CmdNextPage, 0
	case keys.PageDown, keys.KPPageDown, keys.Minus, keys.KPSubtract:
		return CmdPrevPage, 0
	case keys.Delete, keys.KPDelete:
		return CmdDeleteForward, 0
	case keys.BackSpace:
		return CmdDeleteBackward, 0
	case keys.Return, keys.KPEnter:
		return CmdCommitRaw, 0
	case keys.Escape:
		return CmdCancel, 0
	}
	return CmdNone, 0
}
