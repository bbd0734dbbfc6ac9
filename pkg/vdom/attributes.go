package vdom

import "strings"

func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// A sets an arbitrary attribute.
func A(key string, value any) Attr { return attr(key, value) }

// Key sets the identity of a list item. It is not rendered.
func Key(key string) Attr { return attr("key", key) }

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute. Empty names are dropped.
func Class(classes ...string) Attr {
	kept := make([]string, 0, len(classes))
	for _, c := range classes {
		if c != "" {
			kept = append(kept, c)
		}
	}
	return attr("class", strings.Join(kept, " "))
}

// Data sets a data-* attribute.
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Role sets the ARIA role.
func Role(role string) Attr { return attr("role", role) }

// AriaLive sets aria-live.
func AriaLive(mode string) Attr { return attr("aria-live", mode) }

// AriaBusy sets aria-busy.
func AriaBusy(busy bool) Attr { return attr("aria-busy", busy) }

// ColSpan sets colspan.
func ColSpan(n int) Attr { return attr("colspan", n) }

// Name sets the name attribute of a form control.
func Name(name string) Attr { return attr("name", name) }

// Value sets the value attribute.
func Value(value string) Attr { return attr("value", value) }

// Type sets the type attribute.
func Type(t string) Attr { return attr("type", t) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Attr { return attr("placeholder", text) }

// Disabled marks a control as disabled.
func Disabled() Attr { return attr("disabled", true) }

// Required marks a control as required.
func Required() Attr { return attr("required", true) }

// Selected marks an option as selected.
func Selected() Attr { return attr("selected", true) }

// If returns a when cond holds and an empty attribute otherwise.
func If(cond bool, a Attr) Attr {
	if cond {
		return a
	}
	return Attr{}
}
