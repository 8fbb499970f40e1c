package strategy

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/agext/levenshtein"

	"protocol-extractor/pkg/domain"
)

// Confidence levels for the structured tier. A speech with a complete
// node structure is fully trusted; one with missing attribution or
// truncated text is still the best available but marked down.
const (
	structuredComplete = 1.0
	structuredPartial  = 0.7
)

// minimum name similarity for pairing a speech node with a stub when
// counts differ and positional pairing is off the table.
const nodeMatchThreshold = 0.8

// Structured extracts speeches directly from the machine-readable
// document. Each speech node subtree is decoded independently, so one
// locally malformed node falls through to the pattern tier without
// discarding the rest of the document.
type Structured struct{}

// NewStructured returns the structured-format strategy.
func NewStructured() *Structured { return &Structured{} }

func (s *Structured) Name() domain.ExtractionMethod { return domain.MethodStructured }

func (s *Structured) Applicable(in *Input, _ []domain.SpeechStub) bool {
	return len(in.StructuredXML) > 0
}

func (s *Structured) Extract(in *Input, pending []domain.SpeechStub) []*domain.ExtractedSpeech {
	nodes := collectSpeechNodes(in.StructuredXML)
	if len(nodes) == 0 {
		return nil
	}

	claimed := make([]bool, len(nodes))
	var out []*domain.ExtractedSpeech
	for _, stub := range pending {
		ni := matchNode(stub, nodes, claimed, len(nodes) == len(pending))
		if ni < 0 {
			continue
		}
		claimed[ni] = true
		out = append(out, buildSpeech(in, stub, nodes[ni]))
	}
	return out
}

// speechNode is one decoded <rede> subtree.
type speechNode struct {
	ID    string     `xml:"id,attr"`
	Items []nodeItem `xml:",any"`
}

type nodeItem struct {
	XMLName xml.Name
	Klasse  string      `xml:"klasse,attr"`
	Redner  *rednerNode `xml:"redner"`
	Text    string      `xml:",chardata"`
}

type rednerNode struct {
	ID   string `xml:"id,attr"`
	Name struct {
		Titel    string `xml:"titel"`
		Vorname  string `xml:"vorname"`
		Nachname string `xml:"nachname"`
		Fraktion string `xml:"fraktion"`
	} `xml:"name"`
}

// collectSpeechNodes walks the document and decodes every <rede>
// element it can, at any depth. Nodes that fail to decode are skipped
// individually; their stubs stay pending for the next tier.
func collectSpeechNodes(doc []byte) []*speechNode {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	// Archive documents occasionally carry stray entities even after
	// repair of tag structure; decode text leniently.
	dec.Strict = false

	var nodes []*speechNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "rede" {
			continue
		}
		var node speechNode
		if err := dec.DecodeElement(&node, &se); err != nil {
			continue
		}
		nodes = append(nodes, &node)
	}
	return nodes
}

func (n *speechNode) speakerName() string {
	for _, it := range n.Items {
		if it.Redner != nil {
			name := strings.TrimSpace(it.Redner.Name.Vorname + " " + it.Redner.Name.Nachname)
			if name != "" {
				return name
			}
		}
	}
	return ""
}

func (n *speechNode) party() string {
	for _, it := range n.Items {
		if it.Redner != nil {
			return strings.TrimSpace(it.Redner.Name.Fraktion)
		}
	}
	return ""
}

// matchNode pairs a stub with an unclaimed speech node: by name
// similarity first, positionally when the node count equals the stub
// count and nothing scored above the threshold.
func matchNode(stub domain.SpeechStub, nodes []*speechNode, claimed []bool, positionalOK bool) int {
	want := strings.ToLower(stub.Speaker.FullName())
	best, bestScore := -1, 0.0
	for i, n := range nodes {
		if claimed[i] {
			continue
		}
		got := strings.ToLower(n.speakerName())
		if got == "" {
			continue
		}
		if score := levenshtein.Similarity(want, got, nil); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 && bestScore >= nodeMatchThreshold {
		return best
	}
	if positionalOK && stub.Index >= 0 && stub.Index < len(nodes) && !claimed[stub.Index] {
		return stub.Index
	}
	return -1
}

func buildSpeech(in *Input, stub domain.SpeechStub, node *speechNode) *domain.ExtractedSpeech {
	var (
		paragraphs []domain.Paragraph
		comments   []domain.Comment
		texts      []string
	)
	for _, it := range node.Items {
		text := strings.TrimSpace(it.Text)
		switch it.XMLName.Local {
		case "p":
			if it.Klasse == "redner" || text == "" {
				continue
			}
			paragraphs = append(paragraphs, domain.Paragraph{
				Index: len(paragraphs),
				Text:  text,
				Kind:  it.Klasse,
			})
			texts = append(texts, text)
		case "kommentar":
			if text != "" {
				comments = append(comments, domain.Comment{Index: len(comments), Text: text})
			}
		}
	}

	complete := node.speakerName() != "" && len(paragraphs) > 0
	md := domain.ExtractionMetadata{
		Method:     domain.MethodStructured,
		Status:     domain.StatusComplete,
		Confidence: structuredComplete,
	}
	if !complete {
		md.Status = domain.StatusPartial
		md.Confidence = structuredPartial
		md.Note = "incomplete node structure"
	}

	sp := newSpeech(in, stub, md)
	sp.Text = strings.Join(texts, "\n\n")
	sp.Paragraphs = paragraphs
	sp.Comments = comments
	if party := node.party(); party != "" && sp.Speaker.Party == "" {
		sp.Speaker.Party = party
	}
	return sp
}
