// Package vdom builds element trees for server-rendered HTML fragments.
//
// Nodes are plain values; the render package turns them into HTML. Element
// constructors accept a mix of attributes, children and strings:
//
//	row := vdom.Tr(vdom.Key(id),
//	    vdom.Td(product.Name),
//	    vdom.Td(vdom.Class("num"), price),
//	    vdom.Td(vdom.Button(vdom.Data("action", "delete"), vdom.Data("id", id), "Delete")),
//	)
//
// nil arguments are skipped, which keeps conditional attributes inline:
//
//	vdom.Button(vdom.If(busy, vdom.Disabled()), "Save")
package vdom
