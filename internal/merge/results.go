// Package merge reattaches batch results to the listings they were generated
// for and projects the joined rows onto the persisted column set.
package merge

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobenrich/internal/schema"
)

// Result is the validated model output for one listing.
type Result struct {
	CustomID string
	Fields   map[string]any
}

type resultLine struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int `json:"status_code"`
		Body       struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"body"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResults reads a batch output file. Lines that cannot yield a valid
// result are skipped, logged and counted in dropped; they never fail the run.
func ParseResults(content []byte, s schema.Schema, logger *slog.Logger) (results map[string]Result, dropped int, err error) {
	results = make(map[string]Result)
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		r, perr := parseLine(line, s)
		if perr == nil {
			if _, dup := results[r.CustomID]; dup {
				perr = fmt.Errorf("duplicate custom_id %q", r.CustomID)
			}
		}
		if perr != nil {
			dropped++
			logger.Warn("dropping batch result", "line", lineNo, "error", perr)
			continue
		}
		results[r.CustomID] = r
	}
	if err := sc.Err(); err != nil {
		return nil, dropped, fmt.Errorf("read batch results: %w", err)
	}
	return results, dropped, nil
}

func parseLine(line []byte, s schema.Schema) (Result, error) {
	var rl resultLine
	if err := json.Unmarshal(line, &rl); err != nil {
		return Result{}, fmt.Errorf("malformed line: %w", err)
	}
	if rl.CustomID == "" {
		return Result{}, fmt.Errorf("line has no custom_id")
	}
	if rl.Error != nil {
		return Result{}, fmt.Errorf("%s: request error %s: %s", rl.CustomID, rl.Error.Code, rl.Error.Message)
	}
	if rl.Response == nil {
		return Result{}, fmt.Errorf("%s: no response", rl.CustomID)
	}
	if rl.Response.StatusCode != 0 && (rl.Response.StatusCode < 200 || rl.Response.StatusCode > 299) {
		return Result{}, fmt.Errorf("%s: response status %d", rl.CustomID, rl.Response.StatusCode)
	}
	if len(rl.Response.Body.Choices) == 0 {
		return Result{}, fmt.Errorf("%s: response has no choices", rl.CustomID)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(rl.Response.Body.Choices[0].Message.Content), &fields); err != nil {
		return Result{}, fmt.Errorf("%s: content is not a JSON object: %w", rl.CustomID, err)
	}
	if err := s.Validate(fields); err != nil {
		return Result{}, fmt.Errorf("%s: %w", rl.CustomID, err)
	}
	return Result{CustomID: rl.CustomID, Fields: fields}, nil
}
