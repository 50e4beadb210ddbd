package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"roomserve/internal/engine"
	"roomserve/internal/metrics"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// textContent is a tool result block. Tool results are always text; domain
// rejections come back as ordinary text with isError set, not as protocol
// errors, so callers can relay the reason verbatim.
type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// handleTools is the tool-protocol surface: a JSON-RPC 2.0 endpoint exposing
// the engine operations as callable tools for automated agents. Same
// semantics as the REST routes, different envelope.
// POST /api/tools
func (s *HTTPServer) handleTools(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("tools")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
		return
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "tools/list":
		resp.Result = map[string]any{"tools": toolCatalog()}
	case "tools/call":
		var params callParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			resp.Error = &rpcError{Code: codeInvalidParams, Message: "invalid params"}
			break
		}
		result, err := s.callTool(r.Context(), params)
		if err != nil {
			resp.Error = err
			break
		}
		resp.Result = result
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
	writeRPC(w, resp)
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) callTool(ctx context.Context, params callParams) (*toolResult, *rpcError) {
	switch params.Name {
	case "list_rooms":
		return s.toolListRooms(ctx)
	case "list_reservations":
		return s.toolListReservations(ctx, params.Arguments)
	case "create_reservation":
		return s.toolCreateReservation(ctx, params.Arguments)
	case "cancel_reservation":
		return s.toolCancelReservation(ctx, params.Arguments)
	default:
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("unknown tool %q", params.Name)}
	}
}

func (s *HTTPServer) toolListRooms(ctx context.Context) (*toolResult, *rpcError) {
	rooms := s.engine.ListRooms(ctx)
	if len(rooms) == 0 {
		return textResult("No rooms are currently bookable."), nil
	}

	var b strings.Builder
	b.WriteString("Bookable rooms:\n")
	for _, room := range rooms {
		fmt.Fprintf(&b, "- %s (id: %s, capacity: %d", room.Name, room.ID, room.Capacity)
		if len(room.Amenities) > 0 {
			fmt.Fprintf(&b, ", amenities: %s", strings.Join(room.Amenities, ", "))
		}
		b.WriteString(")\n")
	}
	return textResult(strings.TrimRight(b.String(), "\n")), nil
}

func (s *HTTPServer) toolListReservations(ctx context.Context, args json.RawMessage) (*toolResult, *rpcError) {
	var in struct {
		Date   string `json:"date,omitempty"`
		RoomID string `json:"room_id,omitempty"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: "invalid arguments"}
		}
	}

	resvs, err := s.engine.ListReservations(ctx, in.Date, in.RoomID)
	if err != nil {
		return toolEngineError(err)
	}
	if len(resvs) == 0 {
		return textResult("No reservations found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d reservation(s):\n", len(resvs))
	for _, r := range resvs {
		fmt.Fprintf(&b, "- [%s] %s, %s %s ~ %s, booked by %s", r.ID, r.RoomName, r.Date, r.StartTime, r.EndTime, r.UserName)
		if r.Purpose != "" {
			fmt.Fprintf(&b, " (%s)", r.Purpose)
		}
		b.WriteString("\n")
	}
	return textResult(strings.TrimRight(b.String(), "\n")), nil
}

func (s *HTTPServer) toolCreateReservation(ctx context.Context, args json.RawMessage) (*toolResult, *rpcError) {
	var in struct {
		RoomID    string `json:"room_id"`
		UserName  string `json:"user_name"`
		UserEmail string `json:"user_email,omitempty"`
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Purpose   string `json:"purpose,omitempty"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid arguments"}
	}

	_, summary, err := s.engine.CreateReservation(ctx, engine.CreateRequest{
		RoomID:    in.RoomID,
		UserName:  in.UserName,
		UserEmail: in.UserEmail,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Purpose:   in.Purpose,
	})
	if err != nil {
		metrics.IncReservationRejected(rejectionReason(err))
		return toolEngineError(err)
	}
	return textResult(summary), nil
}

func (s *HTTPServer) toolCancelReservation(ctx context.Context, args json.RawMessage) (*toolResult, *rpcError) {
	var in struct {
		ReservationID string `json:"reservation_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil || in.ReservationID == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "reservation_id is required"}
	}

	summary, err := s.engine.CancelReservation(ctx, in.ReservationID)
	if err != nil {
		return toolEngineError(err)
	}
	return textResult(summary), nil
}

// toolEngineError converts engine failures into tool results. Validation and
// domain rejections stay in-band as error text; store failures are genuine
// protocol-level faults.
func toolEngineError(err error) (*toolResult, *rpcError) {
	if errors.Is(err, engine.ErrStoreUnavailable) {
		return nil, &rpcError{Code: codeInternalError, Message: "storage temporarily unavailable"}
	}
	return &toolResult{
		Content: []textContent{{Type: "text", Text: "error: " + err.Error()}},
		IsError: true,
	}, nil
}

func textResult(text string) *toolResult {
	return &toolResult{Content: []textContent{{Type: "text", Text: text}}}
}

func toolCatalog() []toolDescriptor {
	dateProp := map[string]any{"type": "string", "description": "Date in YYYY-MM-DD format"}
	timeProp := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc + " in HH:MM format, on a 30-minute boundary within 08:30-19:00"}
	}
	return []toolDescriptor{
		{
			Name:        "list_rooms",
			Description: "List every bookable meeting room with its capacity and amenities.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "list_reservations",
			Description: "List reservations, optionally filtered by date and room. Without a date, only today and later are shown.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date":    dateProp,
					"room_id": map[string]any{"type": "string", "description": "Filter to one room"},
				},
			},
		},
		{
			Name:        "create_reservation",
			Description: "Book a room for a time range on a date. Fails if the range overlaps an existing reservation or falls outside business hours.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"room_id":    map[string]any{"type": "string"},
					"user_name":  map[string]any{"type": "string"},
					"user_email": map[string]any{"type": "string"},
					"date":       dateProp,
					"start_time": timeProp("Start time"),
					"end_time":   timeProp("End time"),
					"purpose":    map[string]any{"type": "string"},
				},
				"required": []string{"room_id", "user_name", "date", "start_time", "end_time"},
			},
		},
		{
			Name:        "cancel_reservation",
			Description: "Cancel an existing reservation by its id.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reservation_id": map[string]any{"type": "string"},
				},
				"required": []string{"reservation_id"},
			},
		},
	}
}
