// Package highlight scrolls to and marks a single line in the currently
// displayed file. The host page may apply its own fragment-driven highlight
// asynchronously, so clearing removes both the controller's mark and any
// native highlight the host left behind.
package highlight

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fareya22/CleanCodeAAgent/internal/logging"
)

// Element is an opaque handle to a page element, owned by the Page
// implementation.
type Element interface{}

// Page is the rendered-document collaborator the controller drives. The
// real implementation wraps the host page; tests provide a fake.
type Page interface {
	// Path returns the current document path (no fragment).
	Path() string
	// Fragment returns the current location fragment without the "#".
	Fragment() string
	// SetFragment updates the in-page location fragment without navigating.
	SetFragment(fragment string)

	// LineElement returns the element representing the line itself.
	LineElement(line int) (Element, bool)
	// RowElement returns the table row for the line when the page uses a
	// row-based layout. Returns false otherwise.
	RowElement(line int) (Element, bool)

	ScrollTo(el Element)
	ApplyMark(el Element)
	RemoveMark(el Element)

	// NativeHighlights lists elements the host page highlighted on its own,
	// typically in reaction to a fragment change.
	NativeHighlights() []Element

	// Yield lets the host page react to a fragment change before the
	// controller continues.
	Yield()

	// Navigate performs a full page navigation.
	Navigate(targetURL string) error
}

// Controller is a small state machine over at most one highlighted line
type Controller struct {
	page   Page
	logger *logging.Logger

	currentLine *int
	marked      Element
}

// New creates a controller for the page
func New(page Page, logger *logging.Logger) *Controller {
	return &Controller{page: page, logger: logger}
}

// CurrentLine reports the line the controller currently has marked
func (c *Controller) CurrentLine() (int, bool) {
	if c.currentLine == nil {
		return 0, false
	}
	return *c.currentLine, true
}

// Clear removes the controller's own mark and any highlight the host page
// applied natively
func (c *Controller) Clear() {
	if c.marked != nil {
		c.page.RemoveMark(c.marked)
		c.marked = nil
	}
	for _, el := range c.page.NativeHighlights() {
		c.page.RemoveMark(el)
	}
	c.currentLine = nil
}

// GoTo scrolls the line into view and marks the narrowest element that
// represents exactly that line: the table row when the page uses a row
// layout, otherwise the line element itself. Marking an ancestor would
// visually cover adjacent lines.
func (c *Controller) GoTo(line int) error {
	target, ok := c.page.RowElement(line)
	if !ok {
		target, ok = c.page.LineElement(line)
	}
	if !ok {
		return fmt.Errorf("line %d not found in current document", line)
	}

	c.page.ScrollTo(target)
	c.page.ApplyMark(target)
	c.marked = target
	c.currentLine = &line

	c.logger.Debug("Highlighted line", map[string]interface{}{"line": line})
	return nil
}

// Navigate routes an issue link. Same-path targets are handled in place:
// clear, move the fragment, yield so the host's own fragment handling can
// fire, then clear again and mark the line. The second clear strips the
// highlight the host applied asynchronously. Different-path targets call
// save (the navigation snapshot) and then perform a full navigation;
// the next page's startup sequence restores and highlights.
func (c *Controller) Navigate(targetURL string, save func() error) error {
	u, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("invalid target url: %w", err)
	}

	if u.Path == c.page.Path() {
		c.Clear()
		c.page.SetFragment(u.Fragment)
		c.page.Yield()
		c.Clear()
		if line, ok := ParseLineFragment(u.Fragment); ok {
			return c.GoTo(line)
		}
		return nil
	}

	c.Clear()
	if save != nil {
		if err := save(); err != nil {
			return err
		}
	}
	return c.page.Navigate(targetURL)
}

// ParseLineFragment extracts the line number from a "L<N>" location
// fragment. A leading "#" is tolerated.
func ParseLineFragment(fragment string) (int, bool) {
	fragment = strings.TrimPrefix(fragment, "#")
	if !strings.HasPrefix(fragment, "L") {
		return 0, false
	}
	line, err := strconv.Atoi(fragment[1:])
	if err != nil || line < 1 {
		return 0, false
	}
	return line, true
}
