package mcp

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/deixis/mac/internal/container"
	"github.com/deixis/mac/internal/history"
	"github.com/deixis/mac/internal/runner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedRunner answers by argv[1:] joined with spaces; unknown commands
// fail to launch as if the binary were missing.
type scriptedRunner map[string]*runner.Result

func (s scriptedRunner) Run(_ context.Context, argv []string) (*runner.Result, error) {
	res, ok := s[strings.Join(argv[1:], " ")]
	if !ok {
		return nil, &runner.LaunchError{Name: argv[0], Err: exec.ErrNotFound}
	}
	out := *res
	out.RunID = uuid.NewString()
	out.Argv = argv
	return &out, nil
}

func ok(stdout string) *runner.Result {
	return &runner.Result{Stdout: []byte(stdout)}
}

// setup creates a mac MCP server + client over in-memory transports.
func setup(t *testing.T, r container.ProcessRunner) (*mcp.ClientSession, *history.LRUStore) {
	t.Helper()
	ctx := context.Background()

	store := history.NewLRUStore(10, nil)
	system := &container.System{Runner: &history.Recorder{Runner: r, Store: store}}
	server := NewServer(system, WithHistory(store))

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs, store
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool(%s)", name)
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// runLine extracts the ID from a "Run: <id>" line.
func runLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if id, found := strings.CutPrefix(line, "Run: "); found {
			return id
		}
	}
	return ""
}

func TestListTools(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{})
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"greet",
		"check_container_version",
		"check_container_system_status",
		"start_container_system",
		"container_preflight",
		"inspect_run",
		"recent_runs",
	}, names)
}

// --- greet ---

func TestGreet(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{})
	res := callTool(t, cs, "greet", map[string]any{"name": "World"})
	assert.False(t, res.IsError)
	assert.Equal(t, "Hello, World! You've been greeted from Go!", resultText(res))
}

func TestGreet_Values(t *testing.T) {
	assert.Equal(t, "Hello, ! You've been greeted from Go!", Greet(""))
	assert.Equal(t, "Hello, Alice & Bob! You've been greeted from Go!", Greet("Alice & Bob"))
}

func TestGreet_MissingName(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{})
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "greet"})
	assert.Error(t, err)
}

// --- container tools ---

func TestVersion(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{"--version": ok("1.2.3\n")})
	res := callTool(t, cs, "check_container_version", nil)
	assert.False(t, res.IsError)
	assert.Equal(t, "1.2.3", resultText(res))
}

func TestVersion_NotInstalled(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{})
	res := callTool(t, cs, "check_container_version", nil)
	text := resultText(res)
	require.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(text, "Container CLI not found. Please install the Apple Container system.\n"))
	assert.Contains(t, text, "Kind: NotInstalled")
	assert.Contains(t, text, container.InstallURL)
	assert.NotContains(t, text, "Run:")
}

func TestStatus_Running(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{"system status": ok("apiserver is running\n")})
	res := callTool(t, cs, "check_container_system_status", nil)
	assert.False(t, res.IsError)
	assert.Equal(t, "apiserver is running", resultText(res))
}

func TestStatus_NotRunning(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{"system status": ok("apiserver is not running\n")})
	res := callTool(t, cs, "check_container_system_status", nil)
	text := resultText(res)
	require.True(t, res.IsError)
	assert.Contains(t, text, "Kind: SystemNotRunning")
	assert.NotEmpty(t, runLine(text))
}

func TestStart_Failed(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{
		"-c echo 'Y' | container system start": {ExitCode: 1, Stderr: []byte("permission denied\n")},
	})
	res := callTool(t, cs, "start_container_system", nil)
	text := resultText(res)
	require.True(t, res.IsError)
	assert.Contains(t, text, "permission denied")
	assert.Contains(t, text, "Kind: CommandFailed")
}

func TestStart_EmptyOutput(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{"-c echo 'Y' | container system start": ok("")})
	res := callTool(t, cs, "start_container_system", nil)
	assert.False(t, res.IsError)
	assert.Empty(t, resultText(res))
}

// --- preflight ---

func TestPreflight_Ready(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{
		"--version":     ok("0.5.0\n"),
		"system status": ok("apiserver is running\n"),
	})
	res := callTool(t, cs, "container_preflight", nil)
	text := resultText(res)
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "Status: READY")
	assert.Contains(t, text, "Version: 0.5.0")
}

func TestPreflight_NotRunning(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{
		"--version":     ok("0.5.0\n"),
		"system status": ok("apiserver is not running\n"),
	})
	res := callTool(t, cs, "container_preflight", map[string]any{"start": false})
	text := resultText(res)
	assert.True(t, res.IsError)
	assert.Contains(t, text, "NOT READY")
	assert.Contains(t, text, "container system start")
}

// --- history ---

func TestInspectRun_AfterFailure(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{"--version": {ExitCode: 64, Stderr: []byte("unknown option\n")}})

	res := callTool(t, cs, "check_container_version", nil)
	require.True(t, res.IsError)
	runID := runLine(resultText(res))
	require.NotEmpty(t, runID)

	insp := callTool(t, cs, "inspect_run", map[string]any{"run_id": runID})
	text := resultText(insp)
	require.False(t, insp.IsError, text)
	assert.Contains(t, text, "Command: container --version")
	assert.Contains(t, text, "Exit code: 64")
	assert.Contains(t, text, "    unknown option")
}

func TestInspectRun_Unknown(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{})
	res := callTool(t, cs, "inspect_run", map[string]any{"run_id": uuid.NewString()})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "No run")
}

func TestInspectRun_MissingRunID(t *testing.T) {
	cs, _ := setup(t, scriptedRunner{})
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "inspect_run",
		Arguments: map[string]any{},
	})
	assert.Error(t, err)
}

func TestRecentRuns(t *testing.T) {
	cs, store := setup(t, scriptedRunner{"--version": ok("1.2.3\n")})

	res := callTool(t, cs, "recent_runs", nil)
	assert.Equal(t, "No runs recorded.", resultText(res))

	callTool(t, cs, "check_container_version", nil)
	callTool(t, cs, "check_container_system_status", nil) // not scripted: launch failure

	res = callTool(t, cs, "recent_runs", map[string]any{"limit": 5})
	text := resultText(res)
	assert.Contains(t, text, "Runs (2):")
	assert.Contains(t, text, "launch failed")
	assert.Len(t, store.Recent(0), 2)
}

func TestNoHistoryTools(t *testing.T) {
	ctx := context.Background()
	server := NewServer(&container.System{Runner: scriptedRunner{}})

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil).Connect(ctx, ct, nil)
	require.NoError(t, err)
	defer func() {
		_ = cs.Close()
		_ = ss.Wait()
	}()

	res, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	for _, tool := range res.Tools {
		assert.NotEqual(t, "inspect_run", tool.Name)
	}
}
