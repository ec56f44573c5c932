package flow

// Clipboard is where copied identifier values go. The controller only
// needs to know whether the write succeeded; on failure the copy state
// is left untouched.
type Clipboard interface {
	WriteText(text string) error
}

// AckClipboard is the transport-side clipboard: the browser performed
// the physical clipboard write and reports it, so the write here always
// succeeds and the controller just records the copy.
type AckClipboard struct{}

func (AckClipboard) WriteText(string) error { return nil }
