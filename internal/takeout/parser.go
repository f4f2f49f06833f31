// Package takeout parses Google Voice takeout HTML documents.
package takeout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/model"
)

// Parser turns takeout HTML into model documents.
type Parser struct{}

// NewParser creates a new takeout parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens and parses the document at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", common.ErrUnreadableDocument, path, err)
	}
	defer func() { _ = f.Close() }()

	return p.Parse(f, path)
}

// Parse reads a single takeout document. path is recorded on the document
// and used to resolve attachments.
func (p *Parser) Parse(r io.Reader, path string) (*model.Document, error) {
	utf8Reader, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to detect encoding: %v", common.ErrUnreadableDocument, err)
	}

	root, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", common.ErrUnreadableDocument, err)
	}

	doc := &model.Document{Path: path}

	if title := findFirst(root, isElement("title")); title != nil {
		doc.Title = textContent(title)
	}

	for _, tag := range findAll(root, isTagLink) {
		if t := strings.TrimSpace(textContent(tag)); t != "" {
			doc.Tags = append(doc.Tags, t)
		}
	}

	for _, group := range findAll(root, hasClass("participants")) {
		for _, tel := range findAll(group, isTelLink) {
			doc.Participants = append(doc.Participants, cardFromLink(tel))
		}
	}

	for _, node := range findAll(root, hasClass("message")) {
		msg, err := parseMessage(node)
		if err != nil {
			slog.Warn("Skipping malformed message", "file", path, "error", err)
			continue
		}
		doc.Messages = append(doc.Messages, msg)
	}

	if call := parseCall(root); call != nil {
		doc.Call = call
	}

	return doc, nil
}

func parseMessage(node *html.Node) (model.Message, error) {
	var msg model.Message

	dt := findFirst(node, hasClass("dt"))
	if dt == nil {
		return msg, fmt.Errorf("message has no timestamp")
	}
	ts, err := parseTimestamp(attr(dt, "title"))
	if err != nil {
		return msg, err
	}
	msg.Timestamp = ts

	if cite := findFirst(node, isElement("cite")); cite != nil {
		msg.Sender = cardFrom(cite)
	}
	if q := findFirst(node, isElement("q")); q != nil {
		msg.Body = strings.TrimSpace(textContent(q))
	}
	msg.Attachments = mediaRefs(node)

	return msg, nil
}

func parseCall(root *html.Node) *model.CallRecord {
	published := findFirst(root, hasClass("published"))
	contributor := findFirst(root, hasClass("contributor"))
	if published == nil && contributor == nil {
		return nil
	}

	call := &model.CallRecord{}
	if published != nil {
		ts, err := parseTimestamp(attr(published, "title"))
		if err != nil {
			slog.Warn("Call record has an unreadable timestamp", "error", err)
		}
		call.Timestamp = ts
	}
	if contributor != nil {
		call.Contributor = cardFrom(contributor)
	}
	if d := findFirst(root, hasClass("duration")); d != nil {
		duration, err := parseDuration(attr(d, "title"))
		if err != nil {
			slog.Warn("Call record has an unreadable duration", "error", err)
		}
		call.Duration = duration
	}
	if transcript := findFirst(root, hasClass("full-text")); transcript != nil {
		call.Transcript = strings.TrimSpace(textContent(transcript))
	}
	for _, audio := range findAll(root, isElement("audio")) {
		if src := attr(audio, "src"); src != "" {
			call.Audio = append(call.Audio, src)
		}
	}
	return call
}

// cardFrom reads a vcard-like element: a tel: link plus a formatted name.
func cardFrom(n *html.Node) model.Card {
	if tel := findFirst(n, isTelLink); tel != nil {
		return cardFromLink(tel)
	}
	card := model.Card{}
	if fn := findFirst(n, hasClass("fn")); fn != nil {
		card.Name = strings.TrimSpace(textContent(fn))
		card.Self = fn.Data == "abbr"
	}
	return card
}

func cardFromLink(tel *html.Node) model.Card {
	card := model.Card{
		Number: strings.TrimSpace(strings.TrimPrefix(attr(tel, "href"), "tel:")),
	}
	if fn := findFirst(tel, hasClass("fn")); fn != nil {
		card.Name = strings.TrimSpace(textContent(fn))
		// The export writes the owner's own name as <abbr class="fn">.
		card.Self = fn.Data == "abbr"
	} else {
		card.Name = strings.TrimSpace(textContent(tel))
	}
	if card.Name == card.Number {
		card.Name = ""
	}
	return card
}

func mediaRefs(n *html.Node) []string {
	var refs []string
	for _, el := range findAll(n, func(n *html.Node) bool {
		return isElement("img")(n) || isElement("video")(n) || isElement("audio")(n)
	}) {
		if src := attr(el, "src"); src != "" {
			refs = append(refs, src)
		}
	}
	for _, a := range findAll(n, isElement("a")) {
		href := attr(a, "href")
		if href == "" || strings.Contains(href, ":") || strings.HasPrefix(href, "#") {
			continue
		}
		refs = append(refs, href)
	}
	return refs
}
