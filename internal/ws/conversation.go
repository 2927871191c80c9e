package ws

import (
	"context"
	"encoding/json"
	"errors"

	"formflow/internal/runtime"
	"formflow/internal/service"

	"go.uber.org/zap"
)

// ConversationHandler drives a visitor's conversation over the socket.
// Each connection gets its own interpreter; transcript entries and
// typing signals are pushed as they happen.
type ConversationHandler struct {
	forms       *service.FormService
	submissions *service.SubmissionService
	attachments *service.AttachmentService
	log         *zap.Logger
}

func NewConversationHandler(forms *service.FormService, submissions *service.SubmissionService, attachments *service.AttachmentService, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		forms:       forms,
		submissions: submissions,
		attachments: attachments,
		log:         log,
	}
}

// Conversation is one visitor's live session bound to a connection.
type Conversation struct {
	formID string
	interp *runtime.Interpreter
}

// Close interrupts any pending typing delay when the socket goes away.
func (c *Conversation) Close() {
	c.interp.Reset()
}

// HandleCommand processes a conversation command
func (h *ConversationHandler) HandleCommand(ctx context.Context, conn *Conn, cmd map[string]interface{}) {
	op, _ := cmd["op"].(string)
	data, _ := cmd["data"].(map[string]interface{})
	msgID, _ := cmd["id"].(string)

	switch op {
	case "start":
		h.handleStart(ctx, conn, msgID, data)
	case "selectService":
		h.handleSelectService(ctx, conn, msgID, data)
	case "answer":
		h.handleAnswer(ctx, conn, msgID, data)
	case "reset":
		h.handleReset(ctx, conn, msgID)
	case "retry":
		h.handleRetry(ctx, conn, msgID)
	default:
		h.sendError(conn, msgID, "unknown_command", "Unknown command: "+op)
	}
}

func (h *ConversationHandler) handleStart(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	formID, _ := data["formId"].(string)
	if formID == "" {
		h.sendError(conn, msgID, "invalid_input", "formId required")
		return
	}

	form, err := h.forms.GetForm(ctx, formID)
	if err != nil {
		h.sendError(conn, msgID, "not_found", err.Error())
		return
	}
	if !form.Published {
		h.sendError(conn, msgID, "form_not_published", "Form is not published")
		return
	}

	wf, err := h.forms.GetDefinition(ctx, formID)
	if err != nil {
		h.sendError(conn, msgID, "load_failed", err.Error())
		return
	}

	if conn.conv != nil {
		conn.conv.Close()
	}

	interp := runtime.NewInterpreter(runtime.Config{
		Workflow:    wf,
		Submissions: h.submissions.StoreFor(formID),
		Attachments: h.attachments,
		Log:         h.log,
		OnEntry: func(e runtime.Entry) {
			h.push(conn, map[string]interface{}{"type": "entry", "entry": e})
		},
		OnTyping: func() {
			h.push(conn, map[string]interface{}{"type": "typing"})
		},
	})
	conn.conv = &Conversation{formID: formID, interp: interp}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]interface{}{
			"formId":   formID,
			"services": interp.Services(),
		},
	})
}

func (h *ConversationHandler) handleSelectService(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	conv := conn.conv
	if conv == nil {
		h.sendError(conn, msgID, "no_conversation", "start a conversation first")
		return
	}

	name, _ := data["service"].(string)
	if name == "" {
		h.sendError(conn, msgID, "invalid_input", "service required")
		return
	}

	// The interpreter blocks through the typing delay; keep the read
	// loop free while it runs.
	go func() {
		if err := conv.interp.SelectService(ctx, name); err != nil {
			h.sendConversationError(conn, msgID, err)
		}
	}()
}

func (h *ConversationHandler) handleAnswer(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	conv := conn.conv
	if conv == nil {
		h.sendError(conn, msgID, "no_conversation", "start a conversation first")
		return
	}

	var value interface{} = data["value"]
	if fileData, ok := data["file"].(map[string]interface{}); ok {
		value = fileRefFromData(fileData)
	}

	go func() {
		if err := conv.interp.Answer(ctx, value); err != nil {
			h.sendConversationError(conn, msgID, err)
		}
	}()
}

func (h *ConversationHandler) handleReset(ctx context.Context, conn *Conn, msgID string) {
	conv := conn.conv
	if conv == nil {
		h.sendError(conn, msgID, "no_conversation", "start a conversation first")
		return
	}

	conv.interp.Reset()

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]interface{}{
			"state":    string(runtime.StateNotStarted),
			"services": conv.interp.Services(),
		},
	})
}

func (h *ConversationHandler) handleRetry(ctx context.Context, conn *Conn, msgID string) {
	conv := conn.conv
	if conv == nil {
		h.sendError(conn, msgID, "no_conversation", "start a conversation first")
		return
	}

	go func() {
		if err := conv.interp.Retry(ctx); err != nil {
			h.sendConversationError(conn, msgID, err)
		}
	}()
}

// fileRefFromData parses a file answer uploaded out of band via the
// sign endpoint.
func fileRefFromData(data map[string]interface{}) runtime.FileRef {
	ref := runtime.FileRef{}
	ref.StorageID, _ = data["storageId"].(string)
	ref.Name, _ = data["name"].(string)
	ref.MimeType, _ = data["mimeType"].(string)
	if size, ok := data["size"].(float64); ok {
		ref.Size = int64(size)
	}
	return ref
}

func (h *ConversationHandler) sendConversationError(conn *Conn, msgID string, err error) {
	var verr *runtime.ValidationError
	switch {
	case errors.As(err, &verr):
		h.push(conn, map[string]interface{}{
			"type":    "error",
			"code":    "validation_failed",
			"stepId":  verr.StepID,
			"message": verr.Msg,
		})
	case errors.Is(err, runtime.ErrSessionReset):
		// the visitor moved on, nothing to report
	case errors.Is(err, runtime.ErrUnknownService):
		h.sendError(conn, msgID, "unknown_service", err.Error())
	case errors.Is(err, runtime.ErrAlreadyStarted):
		h.sendError(conn, msgID, "already_started", err.Error())
	case errors.Is(err, runtime.ErrNoQuestionPending):
		h.sendError(conn, msgID, "no_question", err.Error())
	case errors.Is(err, service.ErrRateLimited):
		h.sendError(conn, msgID, "rate_limited", err.Error())
	default:
		h.sendError(conn, msgID, "command_failed", err.Error())
	}
}

func (h *ConversationHandler) push(conn *Conn, message map[string]interface{}) {
	msg, _ := json.Marshal(message)
	select {
	case conn.send <- msg:
	default:
		h.log.Warn("Failed to push conversation message, channel full")
	}
}

func (h *ConversationHandler) sendResponse(conn *Conn, msgID string, response map[string]interface{}) {
	if msgID != "" {
		response["id"] = msgID
	}
	msg, _ := json.Marshal(response)
	select {
	case conn.send <- msg:
	default:
		h.log.Warn("Failed to send response, channel full")
	}
}

func (h *ConversationHandler) sendError(conn *Conn, msgID, code, message string) {
	err := map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": message,
	}
	if msgID != "" {
		err["id"] = msgID
	}
	msg, _ := json.Marshal(err)
	select {
	case conn.send <- msg:
	default:
		h.log.Warn("Failed to send error, channel full")
	}
}
