package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
	"github.com/AryaBuddha/iclicker-evade/internal/match"
	"github.com/AryaBuddha/iclicker-evade/internal/monitor"
	"github.com/AryaBuddha/iclicker-evade/internal/session"
	"github.com/AryaBuddha/iclicker-evade/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the logged-in session as MCP tools over stdio",
	Long:  "Logs into the portal, then serves MCP tools (list_classes, select_class, question_status, capture_page, submit_answer) so an agent can drive the session.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	registerSessionFlags(serveCmd)
}

// mcpSession serializes tool calls onto the single browser session: the page
// is never touched by two operations at once.
type mcpSession struct {
	sess *liveSession
	mu   sync.Mutex
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	m := &mcpSession{sess: sess}
	srv := mcpserver.NewMCPServer("iclicker-evade", version.Version)

	srv.AddTool(
		mcp.NewTool("list_classes",
			mcp.WithDescription("List the classes available on the course selection page"),
		),
		m.handleListClasses,
	)
	srv.AddTool(
		mcp.NewTool("select_class",
			mcp.WithDescription("Open the class matching the given name"),
			mcp.WithString("name", mcp.Description("Class name (exact, partial, or token match)"), mcp.Required()),
		),
		m.handleSelectClass,
	)
	srv.AddTool(
		mcp.NewTool("question_status",
			mcp.WithDescription("Report whether a question is visible and whether it has been answered"),
		),
		m.handleQuestionStatus,
	)
	srv.AddTool(
		mcp.NewTool("capture_page",
			mcp.WithDescription("Capture a full-page screenshot and return its file path"),
		),
		m.handleCapturePage,
	)
	srv.AddTool(
		mcp.NewTool("submit_answer",
			mcp.WithDescription("Click the answer control for the given letter"),
			mcp.WithString("letter", mcp.Description("Answer letter A-E"), mcp.Required()),
		),
		m.handleSubmitAnswer,
	)

	sess.log.Info("mcp server started")
	return mcpserver.ServeStdio(srv)
}

func (m *mcpSession) handleListClasses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.sess.scanner.Scan()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"classes": session.Names(entries),
		"total":   len(entries),
	})
}

func (m *mcpSession) handleSelectClass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entries, err := m.sess.scanner.Scan()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, ok := match.Match(name, session.Names(entries))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no class matches %q", name)), nil
	}
	if err := m.sess.scanner.Open(resolved); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"selected": resolved})
}

func (m *mcpSession) handleQuestionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := map[string]any{"question_visible": false, "answered": false}

	text, err := m.sess.driver.Text(browser.XPath(monitor.QuestionPath))
	switch {
	case err == nil:
		status["question_visible"] = true
		status["question_text"] = strings.TrimSpace(text)
	case !errors.Is(err, browser.ErrNotFound):
		return mcp.NewToolResultError(err.Error()), nil
	}

	answered, err := m.sess.driver.Exists(browser.CSS(monitor.SelectedButtonSel))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status["answered"] = answered
	return jsonResult(status)
}

func (m *mcpSession) handleCapturePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	img, err := m.sess.driver.FullScreenshot()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := os.MkdirAll(m.sess.cfg.SnapshotDir, 0o755); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := filepath.Join(m.sess.cfg.SnapshotDir, "capture.png")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"path": path})
}

func (m *mcpSession) handleSubmitAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	letter, err := req.RequireString("letter")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	letter = strings.ToUpper(strings.TrimSpace(letter))

	valid := false
	for _, v := range monitor.ValidAnswers {
		if letter == v {
			valid = true
			break
		}
	}
	if !valid {
		return mcp.NewToolResultError(fmt.Sprintf("invalid answer letter %q", letter)), nil
	}

	for _, loc := range monitor.AnswerLocators(letter) {
		if err := m.sess.driver.Click(loc); err == nil {
			return jsonResult(map[string]any{"submitted": letter})
		}
	}
	return mcp.NewToolResultError(monitor.ErrAnswerControlNotFound.Error()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
