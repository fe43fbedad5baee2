package models

// ElementSnapshot is one candidate element sampled from the live DOM.
// Ref addresses the element for a later click until the next snapshot is taken.
type ElementSnapshot struct {
	Ref         int     `json:"ref"`
	Text        string  `json:"text"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	InContainer bool    `json:"inContainer"`
}

// Selector locates elements either by CSS query or by XPath
type Selector struct {
	Query string
	XPath bool
}

// CSS returns a CSS query selector
func CSS(query string) Selector {
	return Selector{Query: query}
}

// XPath returns an XPath selector
func XPath(expr string) Selector {
	return Selector{Query: expr, XPath: true}
}

// Key names understood by AutomationSurface.PressKey
const (
	KeyEscape    = "Escape"
	KeyEnter     = "Enter"
	KeyHome      = "Home"
	KeyArrowDown = "ArrowDown"
)
