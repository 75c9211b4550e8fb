// Package integrations pulls content from third-party workspaces so it can
// be indexed like an uploaded document.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jomei/notionapi"
)

var (
	ErrNotionNotConfigured = errors.New("notion integration is not configured")
	ErrNotionPageNotFound  = errors.New("notion page not found or not shared with the integration")
	ErrNotionUnauthorized  = errors.New("notion token rejected")
)

const notionMaxDepth = 3

type notionPages interface {
	Get(ctx context.Context, id notionapi.PageID) (*notionapi.Page, error)
}

type notionBlocks interface {
	GetChildren(ctx context.Context, id notionapi.BlockID, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error)
}

// NotionPage is the plain-text rendering of a Notion page.
type NotionPage struct {
	ID    string
	Title string
	Text  string
}

// NotionImporter reads pages shared with an internal integration token.
type NotionImporter struct {
	pages  notionPages
	blocks notionBlocks
}

// NewNotionImporter returns nil when token is empty so callers can treat
// the integration as disabled.
func NewNotionImporter(token string) *NotionImporter {
	if token == "" {
		return nil
	}
	client := notionapi.NewClient(notionapi.Token(token))
	return &NotionImporter{pages: client.Page, blocks: client.Block}
}

// FetchPage returns the page title and the text of its blocks, one block
// per line, descending into nested blocks.
func (n *NotionImporter) FetchPage(ctx context.Context, pageID string) (*NotionPage, error) {
	if n == nil {
		return nil, ErrNotionNotConfigured
	}
	pageID = strings.TrimSpace(pageID)

	page, err := n.pages.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, mapNotionError("get page", err)
	}

	var lines []string
	if err := n.collect(ctx, notionapi.BlockID(pageID), 0, &lines); err != nil {
		return nil, err
	}
	log.Printf("[NotionImporter] Fetched page %s (%d blocks)", pageID, len(lines))

	title := pageTitle(page)
	if title == "" {
		title = "Untitled"
	}
	return &NotionPage{ID: pageID, Title: title, Text: strings.Join(lines, "\n")}, nil
}

func (n *NotionImporter) collect(ctx context.Context, parent notionapi.BlockID, depth int, lines *[]string) error {
	var cursor notionapi.Cursor
	for {
		resp, err := n.blocks.GetChildren(ctx, parent, &notionapi.Pagination{StartCursor: cursor, PageSize: 100})
		if err != nil {
			return mapNotionError("get blocks", err)
		}
		for _, block := range resp.Results {
			if text := BlockText(block); text != "" {
				*lines = append(*lines, text)
			}
			if block.GetHasChildren() && depth+1 < notionMaxDepth {
				if err := n.collect(ctx, block.GetID(), depth+1, lines); err != nil {
					return err
				}
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// BlockText renders the text-bearing block types. Everything else (images,
// embeds, dividers, child pages) yields "".
func BlockText(block notionapi.Block) string {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return richText(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		return prefixed("# ", richText(b.Heading1.RichText))
	case *notionapi.Heading2Block:
		return prefixed("## ", richText(b.Heading2.RichText))
	case *notionapi.Heading3Block:
		return prefixed("### ", richText(b.Heading3.RichText))
	case *notionapi.BulletedListItemBlock:
		return prefixed("- ", richText(b.BulletedListItem.RichText))
	case *notionapi.NumberedListItemBlock:
		return prefixed("1. ", richText(b.NumberedListItem.RichText))
	case *notionapi.QuoteBlock:
		return prefixed("> ", richText(b.Quote.RichText))
	case *notionapi.ToDoBlock:
		box := "[ ] "
		if b.ToDo.Checked {
			box = "[x] "
		}
		return prefixed(box, richText(b.ToDo.RichText))
	case *notionapi.CodeBlock:
		return richText(b.Code.RichText)
	case *notionapi.CalloutBlock:
		return richText(b.Callout.RichText)
	case *notionapi.ToggleBlock:
		return richText(b.Toggle.RichText)
	}
	return ""
}

func pageTitle(page *notionapi.Page) string {
	for _, prop := range page.Properties {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			return richText(tp.Title)
		}
	}
	return ""
}

func richText(parts []notionapi.RichText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

func prefixed(prefix, text string) string {
	if text == "" {
		return ""
	}
	return prefix + text
}

func mapNotionError(op string, err error) error {
	var notionErr *notionapi.Error
	if errors.As(err, &notionErr) {
		switch notionErr.Status {
		case http.StatusNotFound:
			return ErrNotionPageNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrNotionUnauthorized
		}
		log.Printf("ERROR [NotionImporter] %s: Notion API error (%s): %s", op, notionErr.Code, notionErr.Message)
	}
	return fmt.Errorf("notion %s: %w", op, err)
}
