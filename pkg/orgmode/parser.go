package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/importer"
	"github.com/harrisonrobin/tasklink/pkg/model"
)

// SourceType is stored on documents made from heading bodies.
const SourceType = "org"

var (
	headingRegex  = regexp.MustCompile(`^\*+\s+([A-Z]+)\s+(?:\[#([A-C])\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	idRegex       = regexp.MustCompile(`^:ID:\s+(\S+)`)
	planningRegex = regexp.MustCompile(`^(?:DEADLINE|SCHEDULED|CLOSED):`)
)

var keywordStatus = map[string]model.Status{
	"TODO":    model.StatusNew,
	"NEXT":    model.StatusNew,
	"STARTED": model.StatusInProgress,
	"DOING":   model.StatusInProgress,
	"WAITING": model.StatusBlocked,
	"HOLD":    model.StatusBlocked,
	"DONE":    model.StatusDone,
}

var orgPriority = map[string]model.Priority{
	"A": model.PriorityHigh,
	"B": model.PriorityMedium,
	"C": model.PriorityLow,
}

func parseFile(filePath string) ([]importer.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, filePath)
}

// ParseFiles parses multiple Org-mode files into import records.
func ParseFiles(filePaths []string) ([]importer.Record, error) {
	var all []importer.Record
	for _, filePath := range filePaths {
		records, err := parseFile(filePath)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// heading accumulates one task heading until the next heading starts.
type heading struct {
	rec  importer.Record
	body []string
}

// Parse reads the task headings of an Org document. A heading is a task when
// its keyword is known (TODO, NEXT, STARTED, DOING, WAITING, HOLD, DONE).
// The body text under a heading, without planning lines and property
// drawers, becomes a document linked to the task.
func Parse(r io.Reader, source string) ([]importer.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []importer.Record
	var cur *heading
	inDrawer := false
	ordinal := 0

	flush := func() {
		if cur == nil {
			return
		}
		if text := strings.TrimSpace(strings.Join(cur.body, "\n")); text != "" {
			cur.rec.Notes = append(cur.rec.Notes, model.NewDocument{
				Text:       text,
				Summary:    cur.rec.Task.Title,
				Source:     truncateSource(source),
				SourceType: SourceType,
			})
		}
		records = append(records, cur.rec)
		cur = nil
	}

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(raw, "*") {
			flush()
			inDrawer = false
			matches := headingRegex.FindStringSubmatch(raw)
			if matches == nil {
				continue
			}
			status, ok := keywordStatus[matches[1]]
			if !ok {
				continue
			}
			ordinal++
			title, _ := importer.Title(matches[3])
			cur = &heading{rec: importer.Record{
				Ref:    source + "#" + strconv.Itoa(ordinal),
				Task:   model.NewTask{Title: title, Priority: orgPriority[matches[2]]},
				Status: status,
			}}
			continue
		}
		if cur == nil {
			continue
		}

		switch {
		case line == ":PROPERTIES:" || line == ":LOGBOOK:":
			inDrawer = true
		case line == ":END:":
			inDrawer = false
		case inDrawer:
			if m := idRegex.FindStringSubmatch(line); m != nil {
				cur.rec.Ref = m[1]
			}
		case planningRegex.MatchString(line):
			if m := deadlineRegex.FindStringSubmatch(line); m != nil {
				if d, err := time.Parse(model.DateLayout, m[1]); err == nil {
					cur.rec.Task.DueDate = &d
				}
			}
		default:
			cur.body = append(cur.body, raw)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return records, nil
}

func truncateSource(s string) string {
	if r := []rune(s); len(r) > model.MaxSourceLen {
		return string(r[len(r)-model.MaxSourceLen:])
	}
	return s
}
