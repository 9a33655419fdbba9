package session

import (
	"pinyind/internal/engine"
	"pinyind/internal/keys"
	"pinyind/internal/protocol"
)

var (
	symC = keys.FromRune('c')
	symZ = keys.FromRune('z')
)

// Route decides what happens to one logical key. Presses never toggle;
// the toggle is recognized on release. A release is forwarded when its
// press was, or when the press was never seen here (it went down before
// focus or before the session started).
func (s *Session) Route(k keys.Logical) Outcome {
	if !k.Pressed {
		return s.routeRelease(k, s.ledger.Held(k.Code))
	}
	s.toggle.Observe(k)

	if s.mode == Composing {
		if s.isExitChord(k) {
			s.requestExit()
			return Consumed
		}
		if s.consume(k) {
			s.refresh()
			return Consumed
		}
	}
	s.forward(k)
	return Forwarded
}

// routeRelease handles a release. seen reports whether the session saw the
// press; a seen press that was consumed or already flushed keeps its
// release to itself.
func (s *Session) routeRelease(k keys.Logical, seen bool) Outcome {
	down := s.ledger.ClearForwarded(k.Code)
	forward := down || !seen
	if forward {
		if err := s.keyboard.Key(k.Millis(), k.Code, protocol.KeyReleased); err != nil {
			s.logger.Warn("failed to forward release", "code", k.Code, "error", err)
			if down {
				s.ledger.MarkForwarded(k.Code)
			}
		}
	}
	if s.toggle.Observe(k) {
		s.flip()
		return Toggled
	}
	if forward {
		return Forwarded
	}
	return Consumed
}

func (s *Session) forward(k keys.Logical) {
	if err := s.keyboard.Key(k.Millis(), k.Code, protocol.KeyPressed); err != nil {
		s.logger.Warn("failed to forward key", "code", k.Code, "error", err)
		return
	}
	s.ledger.MarkForwarded(k.Code)
}

func (s *Session) isExitChord(k keys.Logical) bool {
	if !s.opts.ExitChord || !k.Mods.Has(keys.ModControl) {
		return false
	}
	sym := k.Sym.Lower()
	return sym == symC || sym == symZ
}

func (s *Session) requestExit() {
	s.logger.Info("exit requested")
	s.exiting = true
	s.disarm()
	s.leaveComposing(false)
}

// composing reports whether there is a composition in progress.
func (s *Session) composing() bool {
	return s.mode == Composing && (!s.buffer.Empty() || s.engine.Composing())
}

// consume applies a press in Composing and reports whether it was used.
func (s *Session) consume(k keys.Logical) bool {
	if s.engine.Style() == engine.StyleRawKey {
		return s.engine.ProcessRawKey(k.Sym, k.Mods)
	}
	if k.Mods.Any(keys.ModCommand) {
		return false
	}
	if s.composing() {
		if cmd, index := engine.CommandFor(k.Sym); cmd != engine.CmdNone && s.command(cmd, index) {
			return true
		}
	}
	if k.Sym.IsLetter() {
		s.insert(k.Rune())
		return true
	}
	return false
}

func (s *Session) command(cmd engine.Command, index int) bool {
	s.logger.Debug("composition command", "command", cmd, "index", index)
	switch cmd {
	case engine.CmdChoose:
		return s.choose(index)
	case engine.CmdChooseHighlighted:
		s.choose(s.engine.Page().Highlighted)
	case engine.CmdBufferLeft:
		s.buffer.MoveCursor(-1)
	case engine.CmdBufferRight:
		s.buffer.MoveCursor(1)
	case engine.CmdHighlightPrev:
		s.engine.MoveCursor(-1)
	case engine.CmdHighlightNext:
		s.engine.MoveCursor(1)
	case engine.CmdNextPage:
		s.engine.ChangePage(true)
	case engine.CmdPrevPage:
		s.engine.ChangePage(false)
	case engine.CmdDeleteForward:
		if s.buffer.DeleteForward() {
			s.feed()
		}
	case engine.CmdDeleteBackward:
		switch {
		case s.buffer.DeleteBackward():
			s.feed()
		case s.buffer.Empty():
			// Only converted text is left; drop it.
			s.engine.Reset()
		}
	case engine.CmdCommitRaw:
		s.pending += s.engine.Preedit().Chosen + s.buffer.Text()
		s.buffer.Reset()
		s.engine.Reset()
	case engine.CmdCancel:
		s.buffer.Reset()
		s.engine.Reset()
	default:
		return false
	}
	return true
}

// choose selects a candidate on the current page and drops the input it
// converted from the buffer.
func (s *Session) choose(index int) bool {
	if index < 0 || index >= s.engine.Page().Len() {
		return false
	}
	consumed, ok := s.engine.Choose(index)
	if !ok {
		return false
	}
	s.buffer.TruncateFront(consumed)
	return true
}

func (s *Session) insert(r rune) {
	s.buffer.Insert(r)
	if !s.engine.Active() {
		s.engine.Activate()
	}
	s.feed()
}

func (s *Session) feed() {
	s.engine.Feed(s.buffer.Text(), s.context)
}

// flip switches modes after a recognized toggle.
func (s *Session) flip() {
	s.disarm()
	s.toggle.Reset()
	if s.mode == PassThrough {
		if err := s.flush(); err != nil {
			s.logger.Warn("entering composition with keys still down", "error", err)
		}
		s.buffer.Reset()
		s.engine.Activate()
		s.engine.Reset()
		s.mode = Composing
	} else {
		s.leaveComposing(s.opts.CommitOnToggleOut)
		if err := s.flush(); err != nil {
			s.logger.Warn("failed to release forwarded keys", "error", err)
		}
	}
	s.logger.Info("mode changed", "mode", s.mode)
}

// leaveComposing deactivates the engine, optionally committing the
// composition as it stands, and clears what is displayed.
func (s *Session) leaveComposing(commit bool) {
	if commit && s.composing() {
		s.pending += s.pendingText()
	}
	s.buffer.Reset()
	s.engine.Reset()
	s.engine.Deactivate()
	s.mode = PassThrough
	if s.shown || s.pending != "" {
		s.render(engine.Snapshot{}, true)
	}
}

func (s *Session) pendingText() string {
	pre := s.engine.Preedit()
	if s.engine.Style() == engine.StyleRawKey {
		return pre.Text
	}
	return pre.Chosen + s.buffer.Text()
}
