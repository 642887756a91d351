package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/daemonp/webasto-monitor/internal/controller"
	"github.com/daemonp/webasto-monitor/internal/messagelog"
	"github.com/daemonp/webasto-monitor/internal/types"
)

const defaultMinutes = 60

type Handler struct {
	state    StateSource
	commands Commands
	version  string
	now      func() time.Time
}

func NewHandler(state StateSource, commands Commands, version string) *Handler {
	return &Handler{state: state, commands: commands, version: version, now: time.Now}
}

type messagesResponse struct {
	Messages []types.MessageEntry `json:"messages" msgpack:"messages"`
	Stats    messagelog.Stats     `json:"stats" msgpack:"stats"`
	Filter   messagelog.Filter    `json:"filter" msgpack:"filter"`
	Total    int                  `json:"total" msgpack:"total"`
}

type statusResponse struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

func (h *Handler) HandleHealth(c echo.Context) error {
	snap := h.state.Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"link":    snap.State.Link.String(),
	})
}

func (h *Handler) HandleState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Snapshot().State)
}

func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Snapshot().Stats)
}

// HandleMessages returns the visible subset. Query parameters filter the
// full log without changing the installed filter.
func (h *Handler) HandleMessages(c echo.Context) error {
	resp, err := h.messages(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleMessagesMsgpack(c echo.Context) error {
	resp, err := h.messages(c)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *Handler) messages(c echo.Context) (messagesResponse, error) {
	snap := h.state.Snapshot()
	resp := messagesResponse{
		Messages: snap.Visible,
		Stats:    snap.Stats,
		Filter:   snap.State.Filter,
		Total:    snap.State.Log.Len(),
	}

	direction, search := c.QueryParam("direction"), c.QueryParam("search")
	if direction == "" && search == "" {
		return resp, nil
	}
	f, err := messagelog.NewFilter(direction, search)
	if err != nil {
		return messagesResponse{}, NewBadRequestError("invalid filter", err)
	}
	resp.Messages = messagelog.Apply(snap.State.Log, f)
	resp.Filter = f
	return resp, nil
}

// HandleExport downloads the full, unfiltered log as CSV.
func (h *Handler) HandleExport(c echo.Context) error {
	entries := h.state.Snapshot().State.Log.Entries()

	var buf bytes.Buffer
	if err := messagelog.WriteCSV(&buf, entries); err != nil {
		return NewInternalError("failed to export messages", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", messagelog.ExportFilename(h.now())))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type filterRequest struct {
	Direction string `json:"direction"`
	Search    string `json:"search"`
}

func (h *Handler) HandleSetFilter(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if _, err := messagelog.NewFilter(req.Direction, req.Search); err != nil {
		return NewBadRequestError("invalid filter", err)
	}
	if err := h.state.SetFilter(req.Direction, req.Search); err != nil {
		return commandError(err)
	}
	return c.JSON(http.StatusAccepted, statusResponse{Status: "ok", Action: "filter"})
}

func (h *Handler) HandleConnect(c echo.Context) error {
	return h.run(c, "connect", h.commands.Connect(c.Request().Context()))
}

func (h *Handler) HandleDisconnect(c echo.Context) error {
	return h.run(c, "disconnect", h.commands.Disconnect(c.Request().Context()))
}

func (h *Handler) HandleRefresh(c echo.Context) error {
	return h.run(c, "refresh", h.commands.Refresh(c.Request().Context()))
}

type startRequest struct {
	Minutes int `json:"minutes"`
}

func (h *Handler) HandleStartMode(c echo.Context) error {
	req := startRequest{Minutes: defaultMinutes}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}
	if req.Minutes <= 0 {
		return NewBadRequestError("minutes must be positive", nil)
	}
	mode := c.Param("mode")
	return h.run(c, "start", h.commands.StartMode(c.Request().Context(), mode, req.Minutes))
}

type pumpRequest struct {
	Enable *bool `json:"enable"`
}

func (h *Handler) HandlePump(c echo.Context) error {
	var req pumpRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Enable == nil {
		return NewBadRequestError("enable is required", nil)
	}
	return h.run(c, "pump", h.commands.ControlPump(c.Request().Context(), *req.Enable))
}

func (h *Handler) HandleShutdown(c echo.Context) error {
	confirm, asked := h.confirmer(c)
	err := h.commands.Shutdown(c.Request().Context(), confirm)
	return h.confirmed(c, "shutdown", asked, err)
}

func (h *Handler) HandleClearErrors(c echo.Context) error {
	return h.run(c, "clear errors", h.commands.ClearErrors(c.Request().Context()))
}

func (h *Handler) HandleTestComponent(c echo.Context) error {
	var params controller.TestParams
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&params); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}
	component := c.Param("component")
	err := h.commands.TestComponent(c.Request().Context(), component, params)
	if errors.Is(err, controller.ErrUnknownComponent) {
		apiErr := NewNotFoundError("test component", component)
		apiErr.Details = "testable: " + strings.Join(controller.TestableComponents(), ", ")
		return apiErr
	}
	return h.run(c, "test", err)
}

// HandleTestableComponents lists the components accepted by the test command.
func (h *Handler) HandleTestableComponents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"components": controller.TestableComponents(),
	})
}

func (h *Handler) HandleClearMessages(c echo.Context) error {
	confirm, asked := h.confirmer(c)
	err := h.commands.ClearMessages(c.Request().Context(), confirm)
	return h.confirmed(c, "clear messages", asked, err)
}

// confirmer answers with the confirm query parameter and records whether it
// agreed.
func (h *Handler) confirmer(c echo.Context) (controller.Confirmer, *bool) {
	agreed := new(bool)
	ok := c.QueryParam("confirm") == "true"
	return func(string) bool {
		*agreed = ok
		return ok
	}, agreed
}

func (h *Handler) confirmed(c echo.Context, action string, agreed *bool, err error) error {
	if err != nil {
		return commandError(err)
	}
	if !*agreed {
		return c.JSON(http.StatusOK, statusResponse{Status: "cancelled", Action: action})
	}
	return c.JSON(http.StatusAccepted, statusResponse{Status: "ok", Action: action})
}

func (h *Handler) run(c echo.Context, action string, err error) error {
	if err != nil {
		return commandError(err)
	}
	return c.JSON(http.StatusAccepted, statusResponse{Status: "ok", Action: action})
}
