package osascript

import (
	"fmt"
	"strings"

	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
)

const (
	recordSep = ","
	fieldSep  = "|"
	numFields = 5
)

// ParseResult is the outcome of decoding a list response. Err is set only
// when decoding itself broke; dropped records are counted, not reported.
type ParseResult struct {
	Events  []domain.CalendarEvent
	Dropped int
	Err     error
}

// DecodeEvents splits osascript list output into events.
//
// Records are comma-separated and hold title|start|end|calendar|allDay.
// Records with fewer than five fields or an empty title are dropped.
// A comma inside a title or date splits the record and corrupts it; the
// format has no escaping, so this is a known loss, not a parse error.
func DecodeEvents(raw string) (res ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ParseResult{Err: fmt.Errorf("decode events: %v", r)}
		}
	}()

	res.Events = []domain.CalendarEvent{}
	if strings.TrimSpace(raw) == "" {
		return res
	}

	for _, item := range strings.Split(raw, recordSep) {
		if strings.TrimSpace(item) == "" {
			continue
		}
		parts := strings.Split(item, fieldSep)
		if len(parts) < numFields {
			res.Dropped++
			continue
		}
		title := strings.TrimSpace(parts[0])
		if title == "" {
			res.Dropped++
			continue
		}
		res.Events = append(res.Events, domain.CalendarEvent{
			Title:     title,
			StartDate: strings.TrimSpace(parts[1]),
			EndDate:   strings.TrimSpace(parts[2]),
			Calendar:  strings.TrimSpace(parts[3]),
			AllDay:    strings.TrimSpace(parts[4]) == "true",
		})
	}
	return res
}

// DecodeNames splits a list of calendar or list names.
func DecodeNames(raw string) []string {
	names := []string{}
	if strings.TrimSpace(raw) == "" {
		return names
	}
	for _, item := range strings.Split(raw, recordSep) {
		name := strings.TrimSpace(strings.ReplaceAll(item, `"`, ""))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Parser unwraps ParseResult for callers that must not fail on bad output.
type Parser struct {
	logger *debuglog.Logger
}

func NewParser(logger *debuglog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse returns the decoded events, or an empty slice if decoding broke.
// Problems are recorded in the debug log only.
func (p *Parser) Parse(raw string) []domain.CalendarEvent {
	res := DecodeEvents(raw)
	if res.Err != nil {
		p.logger.Error("response parse failed", res.Err, debuglog.Details{"preview": Preview(raw)})
		return []domain.CalendarEvent{}
	}
	if res.Dropped > 0 {
		p.logger.Warn("dropped malformed records", debuglog.Details{
			"dropped": res.Dropped,
			"kept":    len(res.Events),
		})
	}
	return res.Events
}
