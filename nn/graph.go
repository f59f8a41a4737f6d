package nn

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
)

type layerNode struct {
	Name   string
	Shape  string
	Act    string
	Params int
}

// ToDot renders the network architecture as a graphviz digraph.
func (n *Network) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		panic(err)
	}
	if err := g.SetDir(true); err != nil {
		panic(err)
	}
	if err := g.AddAttr("G", "rankdir", "LR"); err != nil {
		panic(err)
	}

	var buf bytes.Buffer
	nodes := make([]layerNode, 0, len(n.Layers)+1)
	nodes = append(nodes, layerNode{Name: "Input", Shape: fmt.Sprintf("%d", n.In()), Act: "-"})
	for i, l := range n.Layers {
		nodes = append(nodes, layerNode{
			Name:   fmt.Sprintf("Dense %d", i),
			Shape:  fmt.Sprintf("%d→%d", l.In, l.Out),
			Act:    l.Act.String(),
			Params: l.NumParams(),
		})
	}

	for i, ln := range nodes {
		tmpl.Execute(&buf, ln)
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		}
		if err := g.AddNode("G", nodeID(i), attrs); err != nil {
			panic(err)
		}
		buf.Reset()
		if i > 0 {
			if err := g.AddEdge(nodeID(i-1), nodeID(i), true, nil); err != nil {
				panic(err)
			}
		}
	}
	return g.String()
}

func nodeID(i int) string { return fmt.Sprintf("L%d", i) }

const tmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Layer</TD><TD>{{.Name}}</TD></TR>
<TR><TD>Shape</TD><TD>{{.Shape}}</TD></TR>
<TR><TD>Activation</TD><TD>{{.Act}}</TD></TR>
<TR><TD>Params</TD><TD>{{.Params}}</TD></TR>
</TABLE>
>
`

var tmpl *template.Template

func init() {
	tmpl = template.Must(template.New("layer").Parse(tmplRaw))
}
