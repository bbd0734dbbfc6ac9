package connect

import (
	"github.com/nanacaring/cmsportal/pkg/render"
	"github.com/nanacaring/cmsportal/pkg/vdom"
)

// TableData is the projection a table binding renders.
type TableData[T any] struct {
	Items   []T
	Loading bool
	Error   string
}

// TableOptions configures BindTable.
type TableOptions struct {
	// Columns is the colspan of the single-cell status rows.
	Columns        int
	LoadingMessage string
	EmptyMessage   string
	// ErrorRenderer renders a non-empty error. The default is a single
	// row with an alert cell.
	ErrorRenderer func(err string) *vdom.VNode
}

func (o TableOptions) withDefaults() TableOptions {
	if o.Columns <= 0 {
		o.Columns = 1
	}
	if o.LoadingMessage == "" {
		o.LoadingMessage = "Loading..."
	}
	if o.EmptyMessage == "" {
		o.EmptyMessage = "No records found"
	}
	if o.ErrorRenderer == nil {
		cols := o.Columns
		o.ErrorRenderer = func(err string) *vdom.VNode {
			return vdom.Tr(vdom.Td(vdom.ColSpan(cols), vdom.Class("table-error"), vdom.Role("alert"), err))
		}
	}
	return o
}

// BindTable replaces the body of table on every dispatch. Exactly one of
// the loading row, the error, the empty row or the item rows is rendered,
// in that order of precedence.
func BindTable[S, T any](c *Connector[S], table Element, selector func(S) TableData[T], row func(T) *vdom.VNode, opts TableOptions) (unsubscribe func()) {
	opts = opts.withDefaults()
	return c.watch(func(state S) {
		table.SetHTML(render.HTML(TableBody(selector(state), row, opts)))
	})
}

// TableBody renders the rows for data.
func TableBody[T any](data TableData[T], row func(T) *vdom.VNode, opts TableOptions) *vdom.VNode {
	opts = opts.withDefaults()
	switch {
	case data.Loading:
		return statusRow(opts.Columns, "table-loading", opts.LoadingMessage)
	case data.Error != "":
		return opts.ErrorRenderer(data.Error)
	case len(data.Items) == 0:
		return statusRow(opts.Columns, "table-empty", opts.EmptyMessage)
	}

	rows := make([]*vdom.VNode, 0, len(data.Items))
	for _, item := range data.Items {
		rows = append(rows, row(item))
	}
	return vdom.Fragment(rows...)
}

func statusRow(cols int, class, text string) *vdom.VNode {
	return vdom.Tr(vdom.Td(vdom.ColSpan(cols), vdom.Class(class), text))
}
