package metadata

import "testing"

func TestExtractSessionTakesLastSeenValues(t *testing.T) {
	delta := []byte(`{"git_branch":"main","cwd":"/a"}
{"git_branch":"feature/x"}
`)
	sess := ExtractSession(delta)
	if sess.GitBranch != "feature/x" {
		t.Fatalf("GitBranch = %q, want %q", sess.GitBranch, "feature/x")
	}
	if sess.Cwd != "/a" {
		t.Fatalf("Cwd = %q, want %q", sess.Cwd, "/a")
	}
}

func TestExtractToolCallsTruncates(t *testing.T) {
	big := make([]byte, MaxToolFieldLen*2)
	for i := range big {
		big[i] = 'x'
	}
	delta := []byte(`{"type":"tool_use","tool_name":"Bash","tool_input":"` + string(big) + `"}` + "\n")

	calls := ExtractToolCalls(delta)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if len(calls[0].ToolInput) > MaxToolFieldLen {
		t.Fatalf("tool input len = %d, want <= %d", len(calls[0].ToolInput), MaxToolFieldLen)
	}
}

func TestExtractToolCallsSkipsMalformedLines(t *testing.T) {
	delta := []byte("not json\n" + `{"type":"tool_use","tool_name":"Read"}` + "\n")
	calls := ExtractToolCalls(delta)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
}
