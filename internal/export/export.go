// Package export renders a conversation as a JSON document or a
// Time/Sender/Message table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/capitalize-ai/chatstore/internal/model"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "csv"
)

// TimeLayout is the timestamp layout of the table's Time column.
const TimeLayout = "2006-01-02 15:04:05"

// TableHeader is the first row of a table export.
var TableHeader = []string{"Time", "Sender", "Message"}

// ParseFormat maps a query value to a Format. An empty value means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatTable:
		return FormatTable, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type written for f.
func (f Format) ContentType() string {
	if f == FormatTable {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// FileName returns the download name for a conversation export.
func (f Format) FileName(conversationID string) string {
	return fmt.Sprintf("chat-export-%s.%s", conversationID, f)
}

// Write renders c in format f.
func Write(w io.Writer, c model.Conversation, f Format, loc *time.Location) error {
	if f == FormatTable {
		return WriteTable(w, c, loc)
	}
	return WriteJSON(w, c)
}

// WriteJSON writes the conversation's export projection, indented by two spaces.
func WriteJSON(w io.Writer, c model.Conversation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Export())
}

// WriteTable writes one row per message with the timestamp in loc, or UTC
// when loc is nil.
func WriteTable(w io.Writer, c model.Conversation, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(TableHeader); err != nil {
		return err
	}
	for _, m := range c.Messages {
		row := []string{
			m.Timestamp.In(loc).Format(TimeLayout),
			m.SenderLabel(),
			m.DisplayText(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
