// Package metadata extracts session metadata and tool-call records from a
// transcript delta. It does not extract entities or facts — that remains
// out of scope for this service and is produced by the external extractor
// described at the interface boundary.
package metadata

import (
	"bufio"
	"encoding/json"
	"strings"
	"time"

	"github.com/devhaven/memoryd/internal/types"
)

// MaxToolFieldLen caps how much of a tool's input/result is retained, so
// a single huge tool call (e.g. a full file read) cannot dominate storage.
const MaxToolFieldLen = 500

// Session holds the ambient fields a transcript line can carry.
type Session struct {
	GitBranch     string
	Cwd           string
	HostVersion   string
	ThinkingLevel string
}

// transcriptLine is the subset of a transcript JSONL record this package
// understands. Unknown fields are ignored; unparseable lines are skipped
// rather than failing the whole delta.
type transcriptLine struct {
	Type          string          `json:"type"`
	GitBranch     string          `json:"git_branch"`
	Cwd           string          `json:"cwd"`
	HostVersion   string          `json:"host_version"`
	ThinkingLevel string          `json:"thinking_level"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	ToolResult    json.RawMessage `json:"tool_result"`
	IsError       bool            `json:"is_error"`
	Timestamp     *time.Time      `json:"timestamp"`
}

// ExtractSession scans delta for the most recently seen ambient session
// fields (git branch, cwd, host version, thinking level). Later lines
// override earlier ones within the same delta, matching how a transcript
// records a new "environment" snapshot after a context compaction.
func ExtractSession(delta []byte) Session {
	var sess Session
	forEachLine(delta, func(line transcriptLine) {
		if line.GitBranch != "" {
			sess.GitBranch = line.GitBranch
		}
		if line.Cwd != "" {
			sess.Cwd = line.Cwd
		}
		if line.HostVersion != "" {
			sess.HostVersion = line.HostVersion
		}
		if line.ThinkingLevel != "" {
			sess.ThinkingLevel = line.ThinkingLevel
		}
	})
	return sess
}

// ExtractToolCalls returns one types.ToolCall per line in delta whose type is
// "tool_use" or that names a tool, with input/result truncated to
// MaxToolFieldLen.
// contentItemID is stamped onto every returned call by the caller once the
// owning content_items row has an id (see internal/ingest).
func ExtractToolCalls(delta []byte) []*types.ToolCall {
	var calls []*types.ToolCall
	forEachLine(delta, func(line transcriptLine) {
		if line.Type != "tool_use" && line.ToolName == "" {
			return
		}
		ts := time.Now().UTC()
		if line.Timestamp != nil {
			ts = *line.Timestamp
		}
		calls = append(calls, &types.ToolCall{
			ToolName:   line.ToolName,
			ToolInput:  truncate(string(line.ToolInput), MaxToolFieldLen),
			ToolResult: truncate(string(line.ToolResult), MaxToolFieldLen),
			IsError:    line.IsError,
			Timestamp:  ts,
		})
	})
	return calls
}

func forEachLine(delta []byte, fn func(transcriptLine)) {
	scanner := bufio.NewScanner(strings.NewReader(string(delta)))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var line transcriptLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			continue
		}
		fn(line)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
