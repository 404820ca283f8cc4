// Package browser opens pages in a real Chrome tab through Rod. It is the
// command-line stand-in for the embedded web view of the mobile client.
package browser

import (
	"time"

	"github.com/go-rod/rod"
)

const (
	domStableWindow = 500 * time.Millisecond
	// Gateways nest the card form at most a couple of frames deep.
	maxFrameDepth = 3
)

// settleFrames waits until the page and every visible iframe below it stop
// mutating. It returns how many documents settled. Frames that cannot be
// entered (cross-origin, detached) are skipped.
func settleFrames(page *rod.Page, depth int) (int, error) {
	if err := page.WaitDOMStable(domStableWindow, 0); err != nil {
		return 0, err
	}
	settled := 1
	if depth >= maxFrameDepth {
		return settled, nil
	}

	frames, err := page.Elements("iframe")
	if err != nil {
		return settled, nil
	}
	for _, el := range frames {
		if visible, _ := el.Visible(); !visible {
			continue
		}
		doc, err := el.Frame()
		if err != nil {
			continue
		}
		n, err := settleFrames(doc, depth+1)
		settled += n
		if err != nil {
			return settled, err
		}
	}
	return settled, nil
}
