// Package surface abstracts the embedded web content view that hosts the
// payment widget. The controller and bridge only ever talk to the Surface
// interface; HTMLSurface is the reference implementation, rendering a
// bootstrap document that loads the remote widget script, wires its result
// handlers to the bridge's event channel, and opens it.
package surface

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
)

// Page is the rendered embedded web document hosting the widget. It is the
// "renderable" the host places in its UI tree; the controller returns nil
// instead of a Page whenever the checkout is not visible.
type Page struct {
	HTML []byte
}

// Surface is the embedded web content port. Mounting renders the widget
// bootstrap document with the injected init payload; unmounting discards it.
type Surface interface {
	Mount(initPayload []byte) (*Page, error)
	Unmount()
	Page() *Page
}

// The bootstrap page attaches the three widget handlers before opening:
// success (handler), dismissal (modal.ondismiss) and failure
// (payment.failed). Each posts one tagged message to the event path.
const bootstrapTemplate = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Checkout</title>
</head>
<body>
<script src="{{.WidgetURL}}"></script>
<script>
(function () {
  function deliver(msg) {
    fetch({{.EventPath}}, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(msg)
    }).catch(function () {});
  }
  var options = {{.Options}};
  options.handler = function (response) {
    deliver({type: "SUCCESS", payload: response});
  };
  options.modal = options.modal || {};
  options.modal.ondismiss = function () {
    deliver({type: "DISMISSED"});
  };
  var widget = new window[{{.Global}}](options);
  widget.on("payment.failed", function (response) {
    deliver({type: "FAILED", payload: response});
  });
  deliver({type: "READY"});
  widget.open();
})();
</script>
</body>
</html>
`

// HTMLSurface renders the widget bootstrap page. It holds at most one mounted
// page at a time.
type HTMLSurface struct {
	widgetURL string
	eventPath string
	global    string
	tmpl      *template.Template

	mu   sync.Mutex
	page *Page
}

// NewHTMLSurface creates a surface that loads the widget script from
// widgetURL and posts result messages to eventPath. global is the name of the
// constructor the widget script installs on window.
func NewHTMLSurface(widgetURL, eventPath, global string) *HTMLSurface {
	if widgetURL == "" {
		panic("widget URL cannot be empty")
	}
	if eventPath == "" {
		panic("event path cannot be empty")
	}
	return &HTMLSurface{
		widgetURL: widgetURL,
		eventPath: eventPath,
		global:    global,
		tmpl:      template.Must(template.New("bootstrap").Parse(bootstrapTemplate)),
	}
}

// Mount renders the bootstrap page with the given serialized init payload.
// The payload is produced by json.Marshal, which escapes angle brackets, so
// embedding it in a script context is safe.
func (s *HTMLSurface) Mount(initPayload []byte) (*Page, error) {
	data := struct {
		WidgetURL string
		EventPath string
		Global    string
		Options   template.JS
	}{
		WidgetURL: s.widgetURL,
		EventPath: s.eventPath,
		Global:    s.global,
		Options:   template.JS(initPayload),
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("surface: render bootstrap page: %w", err)
	}

	page := &Page{HTML: buf.Bytes()}
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
	return page, nil
}

// Unmount discards the mounted page.
func (s *HTMLSurface) Unmount() {
	s.mu.Lock()
	s.page = nil
	s.mu.Unlock()
}

// Page returns the currently mounted page, or nil.
func (s *HTMLSurface) Page() *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}
