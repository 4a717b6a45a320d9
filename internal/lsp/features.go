package lsp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/randomizedcoder/simrun/internal/controller"
	"github.com/randomizedcoder/simrun/internal/docs"
)

// CommandResult is returned from workspace/executeCommand.
type CommandResult struct {
	Command string `json:"command"`
	CodeID  string `json:"code"`
	Running bool   `json:"running"`
	// Accepted is false when the controller rejected or had nothing to do;
	// the reason was already shown to the user.
	Accepted bool `json:"accepted"`
}

// tableFor returns the docs table of the dialect detected for path.
func (s *Server) tableFor(path string) (*docs.Table, bool) {
	doc, ok := s.ctrl.Workspace().Get(path)
	if !ok {
		return nil, false
	}
	id, ok := s.ctrl.Registry().Detect(filepath.Base(doc.Path), doc.Text)
	if !ok {
		return nil, false
	}
	return s.docs[id], true
}

func (s *Server) completion(params protocol.CompletionParams) *protocol.CompletionList {
	list := &protocol.CompletionList{Items: []protocol.CompletionItem{}}

	table, ok := s.tableFor(filename(params.TextDocument.URI))
	if !ok {
		return list
	}
	for _, it := range table.Completions() {
		list.Items = append(list.Items, completionItem(it))
	}
	return list
}

func completionItem(it docs.CompletionItem) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:            it.Label,
		Kind:             protocol.CompletionItemKindVariable,
		Detail:           it.Description,
		InsertText:       it.InsertText,
		InsertTextFormat: protocol.InsertTextFormatPlainText,
		Documentation: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: it.Documentation,
		},
	}
	if it.Detail != "" {
		item.Detail = fmt.Sprintf("%s (%s)", it.Detail, it.Description)
	}
	if it.Kind == docs.KindEnumMember {
		item.Kind = protocol.CompletionItemKindEnumMember
	}
	if it.Snippet {
		item.InsertTextFormat = protocol.InsertTextFormatSnippet
	}
	return item
}

func (s *Server) hover(params protocol.HoverParams) *protocol.Hover {
	path := filename(params.TextDocument.URI)
	table, ok := s.tableFor(path)
	if !ok {
		return nil
	}
	doc, _ := s.ctrl.Workspace().Get(path)
	word, ok := docs.WordAt(doc.Text, int(params.Position.Line), int(params.Position.Character))
	if !ok {
		return nil
	}
	md, ok := table.Hover(word)
	if !ok {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: md,
		},
	}
}

// executeCommand dispatches "<id>.run" and "<id>.terminate". An optional
// first argument is the URI of the document to focus first.
func (s *Server) executeCommand(ctx context.Context, params protocol.ExecuteCommandParams) (*CommandResult, error) {
	d, terminate, ok := s.ctrl.Registry().ByCommand(params.Command)
	if !ok {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("unknown command %q", params.Command))
	}

	if len(params.Arguments) > 0 {
		if u, ok := params.Arguments[0].(string); ok && u != "" {
			if err := s.ctrl.Focus(filename(protocol.DocumentURI(u))); err != nil {
				return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
			}
		}
	}

	result := &CommandResult{Command: params.Command, CodeID: d.ID}
	if terminate {
		killed, err := s.ctrl.Terminate(d.ID)
		if err != nil {
			return nil, jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
		}
		result.Accepted = killed
	} else {
		err := s.ctrl.Run(ctx, d.ID)
		switch {
		case err == nil:
			result.Accepted = true
		case errors.Is(err, controller.ErrUnknownCode):
			return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
		default:
			// Already reported through window/showMessage.
			s.logger.Debug("run_not_started", "code", d.ID, "error", err)
		}
	}
	result.Running = s.ctrl.Running(d.ID)
	return result, nil
}
