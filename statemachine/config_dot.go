package statemachine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// parseDOT reads a Graphviz declaration. Only standard attributes are used:
//
//	digraph checkout {
//	  root = "cart"
//	  cart [comment="status == 200", URL="/cart"]
//	  paid [comment="json.paid == true", URL="/orders/1"]
//	  cart -> paid [label="http", weight=2, URL="/pay", comment="method=POST"]
//	}
//
// The graph name names the declaration and root selects the initial state,
// defaulting to the first node. A node's comment is its verify expression
// and its URL becomes the "path" metadata. An edge's label is its action
// type, weight its cost, tooltip its name, URL its "path" parameter and
// comment a list of key=value parameters separated by semicolons.
func parseDOT(data []byte) (*Config, error) {
	ast, err := gographviz.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOT: %w", err)
	}

	graph := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, graph); err != nil {
		return nil, fmt.Errorf("failed to analyze DOT: %w", err)
	}

	config := &Config{
		Name:         unquote(graph.Name),
		InitialState: getAttr(graph.Attrs, "root"),
	}

	for _, node := range graph.Nodes.Nodes {
		name := unquote(node.Name)

		state := StateConfig{
			Name:   name,
			Verify: getAttr(node.Attrs, "comment"),
		}

		if path := getAttr(node.Attrs, "URL"); path != "" {
			state.Metadata = map[string]any{"path": path}
		}

		config.States = append(config.States, state)
	}

	if config.InitialState == "" && len(config.States) > 0 {
		config.InitialState = config.States[0].Name
	}

	for _, edge := range graph.Edges.Edges {
		transition, err := dotTransition(edge)
		if err != nil {
			return nil, err
		}

		config.Transitions = append(config.Transitions, transition)
	}

	return config, nil
}

func dotTransition(edge *gographviz.Edge) (TransitionConfig, error) {
	transition := TransitionConfig{
		From: unquote(edge.Src),
		To:   unquote(edge.Dst),
		Name: getAttr(edge.Attrs, "tooltip"),
	}

	if weight := getAttr(edge.Attrs, "weight"); weight != "" {
		cost, err := strconv.ParseFloat(weight, 64)
		if err != nil {
			return transition, fmt.Errorf("edge %s -> %s: invalid weight %q: %w",
				transition.From, transition.To, weight, err)
		}

		transition.Cost = &cost
	}

	actionType := getAttr(edge.Attrs, "label")
	if actionType == "" {
		return transition, nil
	}

	params := make(map[string]any)

	if path := getAttr(edge.Attrs, "URL"); path != "" {
		params["path"] = path
	}

	for pair := range strings.SplitSeq(getAttr(edge.Attrs, "comment"), ";") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	transition.Action = &ActionConfig{
		Type:       actionType,
		Name:       transition.Name,
		Parameters: params,
	}

	return transition, nil
}

// getAttr reads a Graphviz attribute without its surrounding quotes.
func getAttr(attrs gographviz.Attrs, key string) string {
	val, ok := attrs[gographviz.Attr(key)]
	if !ok {
		return ""
	}

	return unquote(strings.TrimSpace(val))
}

func unquote(val string) string {
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = strings.ReplaceAll(val[1:len(val)-1], `\"`, `"`)
	}

	return val
}
