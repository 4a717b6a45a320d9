// Package lsp serves completion, hover and the run/terminate commands to
// an editor over the Language Server Protocol.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/randomizedcoder/simrun/internal/controller"
	"github.com/randomizedcoder/simrun/internal/docs"
	"github.com/randomizedcoder/simrun/internal/logging"
	"github.com/randomizedcoder/simrun/internal/notify"
	"github.com/randomizedcoder/simrun/internal/status"
)

// Custom methods outside the LSP specification.
const (
	// MethodDidFocus is sent by the client when the active editor changes.
	MethodDidFocus = "simrun/didFocus"

	// MethodStatus is sent to the client whenever the status control
	// changes.
	MethodStatus = "simrun/status"
)

// FocusParams are the params of MethodDidFocus.
type FocusParams struct {
	URI protocol.DocumentURI `json:"uri"`
}

// StatusParams are the params of MethodStatus.
type StatusParams struct {
	Visible bool   `json:"visible"`
	CodeID  string `json:"code,omitempty"`
	Label   string `json:"label,omitempty"`
	Text    string `json:"text,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Command string `json:"command,omitempty"`
}

// Config holds the dependencies of a Server.
type Config struct {
	Docs    map[string]*docs.Table
	Logger  *slog.Logger
	Name    string
	Version string
}

// Server is one LSP session.
type Server struct {
	docs    map[string]*docs.Table
	logger  *slog.Logger
	name    string
	version string

	ctrl        *controller.Controller
	unsubscribe func()

	mu       sync.Mutex
	conn     jsonrpc2.Conn
	shutdown bool
	exited   chan struct{}
	exitOnce sync.Once
}

// NewServer creates a server. Bind must be called before Serve.
func NewServer(cfg Config) *Server {
	s := &Server{
		docs:    cfg.Docs,
		logger:  cfg.Logger,
		name:    cfg.Name,
		version: cfg.Version,
		exited:  make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.name == "" {
		s.name = "simrun"
	}
	return s
}

// Bind attaches the controller whose notifications and status the server
// forwards. The controller should be built with the server as its
// notifier.
func (s *Server) Bind(ctrl *controller.Controller) {
	s.ctrl = ctrl
	s.unsubscribe = ctrl.Subscribe(s.publishStatus)
}

// Serve runs the session over rwc until the client sends exit, the stream
// closes or ctx ends.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	if s.ctrl == nil {
		return fmt.Errorf("lsp: no controller bound")
	}

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.Go(ctx, s.handle)
	s.logger.Info("lsp_serving")

	select {
	case <-ctx.Done():
	case <-conn.Done():
	case <-s.exited:
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.ctrl.TerminateAll()
	_ = conn.Close()

	s.logger.Info("lsp_stopped")
	if err := conn.Err(); err != nil && ctx.Err() == nil && !s.isShutdown() {
		return err
	}
	return nil
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) connection() jsonrpc2.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Notify forwards a controller notification as window/showMessage.
func (s *Server) Notify(n notify.Notification) {
	conn := s.connection()
	if conn == nil {
		s.logger.Debug("notification_dropped", "code", n.CodeID, "message", n.Message)
		return
	}
	params := &protocol.ShowMessageParams{
		Type:    messageType(n.Level),
		Message: n.Message,
	}
	if err := conn.Notify(context.Background(), protocol.MethodWindowShowMessage, params); err != nil {
		s.logger.Debug("show_message_failed", "error", err)
	}
}

func messageType(l notify.Level) protocol.MessageType {
	switch l {
	case notify.LevelError:
		return protocol.MessageTypeError
	case notify.LevelWarning:
		return protocol.MessageTypeWarning
	default:
		return protocol.MessageTypeInfo
	}
}

func (s *Server) publishStatus(item status.Item) {
	conn := s.connection()
	if conn == nil {
		return
	}
	params := StatusParams{
		Visible: item.Visible,
		CodeID:  item.CodeID,
		Label:   item.Label,
		Tooltip: item.Tooltip,
		Command: item.Command,
	}
	if item.Visible {
		params.Text = item.Text()
	}
	if err := conn.Notify(context.Background(), MethodStatus, params); err != nil {
		s.logger.Debug("status_notify_failed", "error", err)
	}
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Debug("lsp_request", "method", req.Method())

	if s.isShutdown() {
		switch req.Method() {
		case protocol.MethodExit:
			s.exitOnce.Do(func() { close(s.exited) })
			return reply(ctx, nil, nil)
		default:
			return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
		}
	}

	switch req.Method() {
	case protocol.MethodInitialize:
		return reply(ctx, s.initializeResult(), nil)

	case protocol.MethodInitialized:
		return reply(ctx, nil, nil)

	case protocol.MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.ctrl.TerminateAll()
		return reply(ctx, nil, nil)

	case protocol.MethodExit:
		s.exitOnce.Do(func() { close(s.exited) })
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, nil, s.didOpen(params))

	case protocol.MethodTextDocumentDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, nil, s.didChange(params))

	case protocol.MethodTextDocumentDidSave:
		var params protocol.DidSaveTextDocumentParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.ctrl.Workspace().MarkSaved(filename(params.TextDocument.URI))
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.ctrl.Workspace().Close(filename(params.TextDocument.URI))
		s.ctrl.Refresh()
		return reply(ctx, nil, nil)

	case MethodDidFocus:
		var params FocusParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		if err := s.ctrl.Focus(filename(params.URI)); err != nil {
			s.logger.Debug("focus_ignored", "uri", params.URI, "error", err)
		}
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentCompletion:
		var params protocol.CompletionParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, s.completion(params), nil)

	case protocol.MethodTextDocumentHover:
		var params protocol.HoverParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, s.hover(params), nil)

	case protocol.MethodWorkspaceExecuteCommand:
		var params protocol.ExecuteCommandParams
		if err := decode(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		result, err := s.executeCommand(ctx, params)
		return reply(ctx, result, err)
	}

	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

func decode(req jsonrpc2.Request, v any) error {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("%s: %v", req.Method(), err))
	}
	return nil
}

// filename converts a file:// URI to a local path.
func filename(u protocol.DocumentURI) string {
	return uri.URI(string(u)).Filename()
}

func (s *Server) initializeResult() *protocol.InitializeResult {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: false},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: docs.CompletionTriggers,
			},
			HoverProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: s.ctrl.Registry().Commands(),
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	}
}

func (s *Server) didOpen(params protocol.DidOpenTextDocumentParams) error {
	path := filename(params.TextDocument.URI)
	s.ctrl.Workspace().Open(path, params.TextDocument.Text)
	return s.ctrl.Focus(path)
}

func (s *Server) didChange(params protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	path := filename(params.TextDocument.URI)
	// Full sync: the last change carries the whole text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	if err := s.ctrl.Workspace().Update(path, text); err != nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	s.ctrl.Refresh()
	return nil
}
