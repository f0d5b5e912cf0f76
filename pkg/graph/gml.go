package graph

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"unicode"

	"iggraph/pkg/logger"
	"iggraph/pkg/models"
)

// WriteGML serialises the graph in GML. Each node's label is its account id;
// attributes with empty, zero or false values are omitted.
func (g *FollowGraph) WriteGML(w io.Writer) error {
	bw := bufio.NewWriter(w)
	index := make(map[string]int, len(g.order))

	fmt.Fprintln(bw, "graph [")
	fmt.Fprintln(bw, "  directed 1")
	for i, id := range g.order {
		index[id] = i
		n := g.nodes[id]
		fmt.Fprintln(bw, "  node [")
		fmt.Fprintf(bw, "    id %d\n", i)
		fmt.Fprintf(bw, "    label %s\n", quote(id))
		for _, a := range nodeAttributes(n) {
			fmt.Fprintf(bw, "    %s %s\n", a.key, a.value)
		}
		fmt.Fprintln(bw, "  ]")
	}
	for _, e := range g.Edges() {
		fmt.Fprintln(bw, "  edge [")
		fmt.Fprintf(bw, "    source %d\n", index[e.Source])
		fmt.Fprintf(bw, "    target %d\n", index[e.Target])
		fmt.Fprintln(bw, "  ]")
	}
	fmt.Fprintln(bw, "]")
	return bw.Flush()
}

type attribute struct {
	key   string
	value string
}

func nodeAttributes(n *Node) []attribute {
	var attrs []attribute
	str := func(k, v string) {
		if v != "" {
			attrs = append(attrs, attribute{k, quote(v)})
		}
	}
	num := func(k string, v int) {
		if v != 0 {
			attrs = append(attrs, attribute{k, strconv.Itoa(v)})
		}
	}
	flag := func(k string, v bool) {
		if v {
			attrs = append(attrs, attribute{k, "1"})
		}
	}

	str("username", n.Username)
	str("fullName", n.DisplayName)
	if p := n.Profile; p != nil {
		str("profilePicUrl", p.ProfilePicURL)
		str("profilePicUrlHd", p.ProfilePicURLHD)
		str("biography", p.Biography)
		str("externalUrl", p.ExternalURL)
		num("followsCount", p.FollowsCount)
		num("followedByCount", p.FollowedByCount)
		num("mediaCount", p.MediaCount)
		flag("isPrivate", p.IsPrivate)
		flag("isVerified", p.IsVerified)
		flag("isBusinessAccount", p.IsBusinessAccount)
		str("businessCategoryName", p.BusinessCategoryName)
	}
	return attrs
}

// quote produces a GML string literal. Quotes, ampersands and anything
// outside printable ASCII become character references.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			sb.WriteString("&quot;")
		case r == '&':
			sb.WriteString("&amp;")
		case r < 0x20 || r > 0x7e:
			fmt.Fprintf(&sb, "&#%d;", r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// ReadGML parses a GML document into a FollowGraph. Unknown keys are ignored
// and nodes without a label are keyed by their numeric id.
func ReadGML(r io.Reader, log logger.Logger) (*FollowGraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GML: %w", err)
	}
	p := &gmlParser{src: string(data)}
	top, err := p.parseList(false)
	if err != nil {
		return nil, err
	}

	var body []gmlPair
	for _, kv := range top {
		if kv.key == "graph" && kv.val.list != nil {
			body = kv.val.list
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("GML document has no graph section")
	}

	g := New(log)
	ids := make(map[string]string)
	directed := false
	type rawEdge struct{ source, target string }
	var edges []rawEdge

	for _, kv := range body {
		switch kv.key {
		case "directed":
			directed = kv.val.text == "1"
		case "node":
			node, gmlID, err := decodeNode(kv.val.list)
			if err != nil {
				return nil, err
			}
			if g.HasNode(node.ID) {
				return nil, fmt.Errorf("duplicate node %q in GML", node.ID)
			}
			ids[gmlID] = node.ID
			g.insert(node)
		case "edge":
			var e rawEdge
			for _, f := range kv.val.list {
				switch f.key {
				case "source":
					e.source = f.val.text
				case "target":
					e.target = f.val.text
				}
			}
			edges = append(edges, e)
		}
	}

	for _, e := range edges {
		src, ok1 := ids[e.source]
		dst, ok2 := ids[e.target]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("edge %s -> %s references an unknown node", e.source, e.target)
		}
		g.AddEdges(src, dst)
		if !directed {
			g.AddEdges(dst, src)
		}
	}
	return g, nil
}

func decodeNode(fields []gmlPair) (*Node, string, error) {
	n := &Node{}
	var gmlID, label string
	var profile models.Profile
	hasProfile := false

	for _, f := range fields {
		v := f.val.text
		switch f.key {
		case "id":
			gmlID = v
		case "label":
			label = v
		case "username":
			n.Username = v
		case "fullName":
			n.DisplayName = v
		case "profilePicUrl":
			profile.ProfilePicURL, hasProfile = v, true
		case "profilePicUrlHd":
			profile.ProfilePicURLHD, hasProfile = v, true
		case "biography":
			profile.Biography, hasProfile = v, true
		case "externalUrl":
			profile.ExternalURL, hasProfile = v, true
		case "followsCount":
			profile.FollowsCount, hasProfile = atoi(v), true
		case "followedByCount":
			profile.FollowedByCount, hasProfile = atoi(v), true
		case "mediaCount":
			profile.MediaCount, hasProfile = atoi(v), true
		case "isPrivate":
			profile.IsPrivate, hasProfile = truthy(v), true
		case "isVerified":
			profile.IsVerified, hasProfile = truthy(v), true
		case "isBusinessAccount":
			profile.IsBusinessAccount, hasProfile = truthy(v), true
		case "businessCategoryName":
			profile.BusinessCategoryName, hasProfile = v, true
		}
	}
	if gmlID == "" {
		return nil, "", fmt.Errorf("GML node without id")
	}
	n.ID = label
	if n.ID == "" {
		n.ID = gmlID
	}
	if hasProfile {
		n.Profile = &profile
	}
	return n, gmlID, nil
}

func atoi(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(s, 64)
	return int(f)
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true":
		return true
	}
	return false
}

type gmlValue struct {
	text string
	list []gmlPair
}

type gmlPair struct {
	key string
	val gmlValue
}

type gmlParser struct {
	src string
	pos int
}

func (p *gmlParser) parseList(nested bool) ([]gmlPair, error) {
	var out []gmlPair
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			if nested {
				return nil, fmt.Errorf("GML: unexpected end of input, missing ]")
			}
			return out, nil
		}
		if p.src[p.pos] == ']' {
			if !nested {
				return nil, fmt.Errorf("GML: unexpected ] at offset %d", p.pos)
			}
			p.pos++
			return out, nil
		}
		key := p.word()
		if key == "" {
			return nil, fmt.Errorf("GML: expected key at offset %d", p.pos)
		}
		val, err := p.value()
		if err != nil {
			return nil, fmt.Errorf("GML: value of %q: %w", key, err)
		}
		out = append(out, gmlPair{key: key, val: val})
	}
}

func (p *gmlParser) value() (gmlValue, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return gmlValue{}, fmt.Errorf("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '[':
		p.pos++
		list, err := p.parseList(true)
		if err != nil {
			return gmlValue{}, err
		}
		if list == nil {
			list = []gmlPair{}
		}
		return gmlValue{list: list}, nil
	case c == '"':
		end := strings.IndexByte(p.src[p.pos+1:], '"')
		if end < 0 {
			return gmlValue{}, fmt.Errorf("unterminated string at offset %d", p.pos)
		}
		raw := p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return gmlValue{text: html.UnescapeString(raw)}, nil
	default:
		start := p.pos
		for p.pos < len(p.src) && !unicode.IsSpace(rune(p.src[p.pos])) && p.src[p.pos] != ']' && p.src[p.pos] != '[' {
			p.pos++
		}
		if start == p.pos {
			return gmlValue{}, fmt.Errorf("empty value at offset %d", start)
		}
		return gmlValue{text: p.src[start:p.pos]}, nil
	}
}

func (p *gmlParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *gmlParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '#' {
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(rune(c)) {
			return
		}
		p.pos++
	}
}
