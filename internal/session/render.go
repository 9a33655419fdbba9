package session

import (
	"fmt"
	"strings"

	"pinyind/internal/engine"
)

// refresh pulls the engine state after a consumed key and sends it to the
// text field. A commit ends the composition cycle but not the mode.
func (s *Session) refresh() {
	snap := engine.Capture(s.engine)
	if snap.Commit != "" {
		s.buffer.Reset()
		s.engine.Reset()
		snap.Preedit, snap.Page, snap.Aux = engine.Preedit{}, engine.Page{}, ""
	}
	s.render(snap, false)
}

// render emits commit text, preedit and panel contents followed by a
// protocol commit. Unless force is set nothing is sent when nothing is
// visible before or after.
func (s *Session) render(snap engine.Snapshot, force bool) {
	commit := s.pending + snap.Commit
	s.pending = ""
	text, caret := s.preedit(snap)
	visible := text != "" || snap.Page.Len() > 0 || snap.Aux != ""
	if !force && !visible && !s.shown && commit == "" {
		return
	}

	if commit != "" {
		s.logger.Debug("committing text", "runes", len([]rune(commit)))
		if err := s.input.CommitString(commit); err != nil {
			s.logger.Warn("failed to commit text", "error", err)
		}
	}
	if err := s.input.SetPreedit(text, int32(caret), int32(caret)); err != nil {
		s.logger.Warn("failed to set preedit", "error", err)
	}
	s.updatePanel(snap)

	s.serial++
	if err := s.input.Commit(s.serial); err != nil {
		s.logger.Warn("failed to commit state", "serial", s.serial, "error", err)
	}
	s.shown = visible
}

// preedit returns the preedit string and the caret as a byte offset. In
// the buffer style the caret follows the composition buffer cursor.
func (s *Session) preedit(snap engine.Snapshot) (string, int) {
	pre := snap.Preedit
	text, caret := pre.Text, pre.Cursor
	if s.engine.Style() == engine.StyleBuffer && text != "" && text == pre.Chosen+s.buffer.Text() {
		runes := []rune(s.buffer.Text())
		caret = len(pre.Chosen) + len(string(runes[:s.buffer.Cursor()]))
	}
	caret = max(0, min(caret, len(text)))

	if s.panel == nil && s.opts.InlineCandidates && snap.Page.Len() > 0 {
		text += " <- " + inlineCandidates(snap.Page)
	}
	return text, caret
}

// inlineCandidates renders a page as "[1]你 [2]尼 ...".
func inlineCandidates(p engine.Page) string {
	var sb strings.Builder
	for i, item := range p.Items {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "[%d]%s", i+1, item)
	}
	return sb.String()
}

func (s *Session) updatePanel(snap engine.Snapshot) {
	if s.panel == nil {
		return
	}
	if snap.Page.Len() == 0 && snap.Aux == "" {
		if err := s.panel.Hide(); err != nil {
			s.logger.Warn("failed to hide panel", "error", err)
		}
		return
	}
	if err := s.panel.UpdateCandidates(snap.Page); err != nil {
		s.logger.Warn("failed to update candidates", "error", err)
	}
	if err := s.panel.UpdateAux(snap.Aux); err != nil {
		s.logger.Warn("failed to update aux text", "error", err)
	}
}
