// Package render writes vdom trees as HTML.
//
// Text and attribute values are escaped; attributes are written in sorted
// order so that output is deterministic and can be compared in tests.
//
//	html := render.HTML(vdom.Tr(vdom.Td("Ada")))
//	// <tr><td>Ada</td></tr>
package render
