package render

import (
	"testing"

	"github.com/nanacaring/cmsportal/pkg/vdom"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name string
		node *vdom.VNode
		want string
	}{
		{"nil", nil, ""},
		{"text is escaped", vdom.Text(`<b>"Tom" & 'Jerry'</b>`), "&lt;b&gt;&quot;Tom&quot; &amp; &#39;Jerry&#39;&lt;/b&gt;"},
		{"raw is not escaped", vdom.Raw("<b>x</b>"), "<b>x</b>"},
		{"element with sorted attrs", vdom.Td(vdom.Data("id", "5"), vdom.Class("num"), "12"), `<td class="num" data-id="5">12</td>`},
		{"void element", vdom.Input(vdom.Name("q"), vdom.Value("a\"b")), `<input name="q" value="a&quot;b">`},
		{"boolean attrs", vdom.Button(vdom.Disabled(), vdom.A("hidden", false), "Go"), `<button disabled>Go</button>`},
		{"fragment", vdom.Fragment(vdom.Li("a"), vdom.Li("b")), "<li>a</li><li>b</li>"},
		{"numbers", vdom.Td(vdom.ColSpan(3), vdom.A("data-amount", 12.5)), `<td colspan="3" data-amount="12.5"></td>`},
		{"newline in attr", vdom.Div(vdom.A("title", "a\nb")), `<div title="a&#10;b"></div>`},
		{"tab and carriage return in attr", vdom.Div(vdom.A("title", "a\tb\rc")), `<div title="a&#9;b&#13;c"></div>`},
		{"key not rendered", vdom.Tr(vdom.Key("k1"), vdom.Td("x")), "<tr><td>x</td></tr>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTML(tc.node); got != tc.want {
				t.Errorf("HTML() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := NewRenderer().RenderToString(&vdom.VNode{Kind: vdom.VKind(42)})
	if err == nil {
		t.Fatal("expected error for unknown node kind")
	}
}
