package live

// Element is a page element addressed by its DOM id.
type Element struct {
	s  *Session
	id string
}

// Element returns the element with DOM id id.
func (s *Session) Element(id string) *Element { return &Element{s: s, id: id} }

func (e *Element) ID() string { return e.id }

// SetHTML replaces the element's content.
func (e *Element) SetHTML(html string) {
	e.s.queue(Patch{Op: OpHTML, Target: e.id, HTML: html})
}

// Button is a clickable element.
type Button struct {
	Element
}

func (s *Session) Button(id string) *Button { return &Button{Element{s: s, id: id}} }

func (b *Button) SetDisabled(disabled bool) {
	b.s.queue(Patch{Op: OpDisabled, Target: b.id, Value: disabled})
}

func (b *Button) OnClick(handler func()) {
	b.s.on(EventClick, b.id, func(Frame) { handler() })
}

// Form is a form whose submissions arrive with their field values.
type Form struct {
	Element
}

func (s *Session) Form(id string) *Form { return &Form{Element{s: s, id: id}} }

func (f *Form) OnSubmit(handler func(values map[string]string)) {
	f.s.on(EventSubmit, f.id, func(fr Frame) { handler(fr.Values) })
}

func (f *Form) Reset() {
	f.s.queue(Patch{Op: OpReset, Target: f.id})
}

// SetBusy is sent immediately so the form is disabled while the submission
// it belongs to is still running.
func (f *Form) SetBusy(busy bool) {
	f.s.queue(Patch{Op: OpBusy, Target: f.id, Value: busy})
	if busy {
		if err := f.s.Flush(); err != nil {
			f.s.logger.Debug("busy patch not sent", "error", err)
		}
	}
}

// Container holds dismissable children. A dismiss frame carries the child's
// id in values["id"].
type Container struct {
	Element
}

func (s *Session) Container(id string) *Container { return &Container{Element{s: s, id: id}} }

func (c *Container) OnDismiss(handler func(id string)) {
	c.s.on(EventDismiss, c.id, func(fr Frame) { handler(fr.Values["id"]) })
}
