package surface

import (
	"sync"
)

// Page is the widget tree of one view. Only declared widget ids exist;
// updates to any other id are silently dropped because not every view
// carries every widget.
type Page struct {
	name string

	mu      sync.Mutex
	order   []string
	widgets map[string]*Widget
	version uint64
	subs    map[int]chan struct{}
	nextSub int
	closed  bool

	created  int
	replaced int
}

// NewPage declares a page with the given widgets.
func NewPage(name string, decl ...Widget) *Page {
	p := &Page{
		name:    name,
		widgets: make(map[string]*Widget, len(decl)),
		subs:    make(map[int]chan struct{}),
	}
	for _, w := range decl {
		w := w
		if _, dup := p.widgets[w.ID]; dup {
			continue
		}
		p.order = append(p.order, w.ID)
		p.widgets[w.ID] = &w
	}
	return p
}

// Name is the view the page belongs to.
func (p *Page) Name() string { return p.name }

// Has reports whether id was declared.
func (p *Page) Has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.widgets[id]
	return ok
}

// Update applies fn to widget id. It returns false, and does nothing, when
// the page has no such widget.
func (p *Page) Update(id string, fn func(w *Widget)) bool {
	p.mu.Lock()
	w, ok := p.widgets[id]
	if !ok || p.closed {
		p.mu.Unlock()
		return false
	}
	fn(w)
	p.changedLocked()
	p.mu.Unlock()
	return true
}

// SetText sets the text of id.
func (p *Page) SetText(id, text string) bool {
	return p.Update(id, func(w *Widget) { w.Text = text })
}

// SetBadge sets text and class of a status badge.
func (p *Page) SetBadge(id, text, class string) bool {
	return p.Update(id, func(w *Widget) {
		w.Text = text
		w.Class = class
	})
}

// Get returns a copy of widget id.
func (p *Page) Get(id string) (Widget, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.widgets[id]
	if !ok {
		return Widget{}, false
	}
	return *w, true
}

// HasChart reports whether a live chart instance exists for id.
func (p *Page) HasChart(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.widgets[id]
	return ok && w.Chart != nil
}

// CreateChart creates a new chart instance for id, replacing any placeholder.
func (p *Page) CreateChart(id string, cfg ChartConfig) bool {
	return p.chartPass(id, cfg, true)
}

// ReplaceChart swaps the data of the existing instance with animation off.
// Without an instance it behaves like CreateChart.
func (p *Page) ReplaceChart(id string, cfg ChartConfig) bool {
	return p.chartPass(id, cfg, false)
}

func (p *Page) chartPass(id string, cfg ChartConfig, create bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.widgets[id]
	if !ok || p.closed {
		return false
	}
	w.Placeholder = nil
	if create || w.Chart == nil {
		instance := 1
		if w.Chart != nil {
			instance = w.Chart.Instance + 1
		}
		w.Chart = &Chart{Instance: instance, Animate: true, Config: cfg}
		p.created++
	} else {
		w.Chart = &Chart{
			Instance: w.Chart.Instance,
			Revision: w.Chart.Revision + 1,
			Animate:  false,
			Config:   cfg,
		}
		p.replaced++
	}
	p.changedLocked()
	return true
}

// ShowPlaceholder releases the chart of id and shows ph instead.
func (p *Page) ShowPlaceholder(id string, ph Placeholder) bool {
	return p.Update(id, func(w *Widget) {
		w.Chart = nil
		w.Placeholder = &ph
	})
}

// ChartPasses counts chart creations and in-place replacements so far.
func (p *Page) ChartPasses() (created, replaced int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created, p.replaced
}

// LiveCharts counts chart instances currently held.
func (p *Page) LiveCharts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.widgets {
		if w.Chart != nil {
			n++
		}
	}
	return n
}

// Snapshot is the full widget tree at one version.
type Snapshot struct {
	View    string   `json:"view"`
	Version uint64   `json:"version"`
	Widgets []Widget `json:"widgets"`
}

// Snapshot copies the current tree in declaration order.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := Snapshot{View: p.name, Version: p.version, Widgets: make([]Widget, 0, len(p.order))}
	for _, id := range p.order {
		out.Widgets = append(out.Widgets, *p.widgets[id])
	}
	return out
}

// Version increases on every change.
func (p *Page) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// Subscribe returns a channel that receives a signal after changes. Bursts
// coalesce into one signal. The channel is closed when the page closes.
func (p *Page) Subscribe() (<-chan struct{}, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{}, 1)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

// Close releases every chart instance and ends all subscriptions.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for _, w := range p.widgets {
		w.Chart = nil
	}
	p.closed = true
	p.version++
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) changedLocked() {
	p.version++
	for _, ch := range p.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
