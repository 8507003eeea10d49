// Package popup provides Popup implementations for the scheduler.
package popup

import "github.com/jmylchreest/popsched/internal/scheduler"

// Notice is the content of a popup.
type Notice struct {
	Title  string `json:"title" yaml:"title"`
	Body   string `json:"body,omitempty" yaml:"body,omitempty"`
	Screen string `json:"screen,omitempty" yaml:"screen,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Noticer is implemented by popups carrying a Notice.
type Noticer interface {
	Notice() Notice
}

// noticeOf extracts the notice of p, if it carries one.
func noticeOf(p scheduler.Popup) (Notice, bool) {
	if n, ok := p.(Noticer); ok {
		return n.Notice(), true
	}
	return Notice{}, false
}
