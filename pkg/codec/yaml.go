package codec

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func marshalYAML(r record, positional bool) ([]byte, error) {
	if positional {
		return yaml.Marshal([]uint64{r.Secs, uint64(r.Nanos)})
	}
	return yaml.Marshal(r)
}

func parseYAML(data []byte) (value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return value{}, syntaxError(err)
	}
	return readYAML(&doc)
}

// Limits on the value tree built from one document. Aliases are expanded in
// place, so both bound the work an anchor fan-out can cause.
const (
	maxYAMLDepth = 64
	maxYAMLNodes = 10000
)

// yamlReader tracks alias expansion while a node tree is converted.
type yamlReader struct {
	expanding map[*yaml.Node]bool
	depth     int
	nodes     int
}

// readYAML converts a node tree. Scalars are classified by their resolved
// tag, so quoted numbers stay strings.
func readYAML(n *yaml.Node) (value, error) {
	r := yamlReader{expanding: make(map[*yaml.Node]bool)}
	return r.read(n)
}

func (r *yamlReader) read(n *yaml.Node) (value, error) {
	r.nodes++
	if r.nodes > maxYAMLNodes {
		return value{}, syntaxError(errors.Errorf("yaml: alias expansion exceeds %d nodes", maxYAMLNodes))
	}
	if r.depth >= maxYAMLDepth {
		return value{}, syntaxError(errors.Errorf("yaml: document nested deeper than %d levels", maxYAMLDepth))
	}
	r.depth++
	defer func() { r.depth-- }()

	switch n.Kind {
	case 0:
		// empty document
		return value{kind: kindUnit}, nil

	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value{kind: kindUnit}, nil
		}
		return r.read(n.Content[0])

	case yaml.AliasNode:
		if n.Alias == nil {
			return value{}, syntaxError(errors.Errorf("yaml: unknown anchor *%s", n.Value))
		}
		if r.expanding[n.Alias] {
			return value{}, syntaxError(errors.Errorf("yaml: recursive alias *%s", n.Value))
		}
		r.expanding[n.Alias] = true
		defer delete(r.expanding, n.Alias)
		return r.read(n.Alias)

	case yaml.SequenceNode:
		v := value{kind: kindSeq}
		for _, c := range n.Content {
			elem, err := r.read(c)
			if err != nil {
				return value{}, err
			}
			v.elems = append(v.elems, elem)
		}
		return v, nil

	case yaml.MappingNode:
		v := value{kind: kindMap}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := r.read(n.Content[i])
			if err != nil {
				return value{}, err
			}
			val, err := r.read(n.Content[i+1])
			if err != nil {
				return value{}, err
			}
			v.entries = append(v.entries, entry{key: key, val: val})
		}
		return v, nil

	default:
		return yamlScalar(n)
	}
}

func yamlScalar(n *yaml.Node) (value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value{kind: kindUnit}, nil

	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value{}, syntaxError(err)
		}
		return value{kind: kindBool, b: b}, nil

	case "!!int":
		var u uint64
		if err := n.Decode(&u); err == nil {
			return value{kind: kindUint, u: u}, nil
		}
		var i int64
		if err := n.Decode(&i); err == nil {
			return value{kind: kindInt, i: i}, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(n.Value, "_", ""), 64)
		if err != nil {
			return value{}, syntaxError(errors.Wrapf(err, "yaml: line %d", n.Line))
		}
		return value{kind: kindFloat, f: f}, nil

	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value{}, syntaxError(err)
		}
		return value{kind: kindFloat, f: f}, nil

	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return value{}, syntaxError(errors.Wrapf(err, "yaml: line %d: invalid !!binary", n.Line))
		}
		return value{kind: kindBytes, s: string(b)}, nil

	case "!!str":
		return value{kind: kindString, s: n.Value}, nil

	default:
		return value{kind: kindOther, s: "tagged value " + strconv.Quote(n.Tag)}, nil
	}
}
