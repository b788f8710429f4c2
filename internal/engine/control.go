package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rbright/presto/internal/fsm"
	"github.com/rbright/presto/internal/ipc"
)

// Handle serves one control-socket command.
func (e *Engine) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return e.statusResponse()
	case ipc.CommandToggle:
		return e.setEnabled(func(current bool) bool { return !current })
	case ipc.CommandEnable:
		return e.setEnabled(func(bool) bool { return true })
	case ipc.CommandDisable:
		return e.setEnabled(func(bool) bool { return false })
	case ipc.CommandReload:
		return e.reload()
	case ipc.CommandStop:
		state := e.State()
		if state == fsm.StateStopped {
			return ipc.Response{OK: true, State: string(state), Message: "already stopped"}
		}
		go e.Shutdown()
		return ipc.Response{OK: true, State: string(fsm.StateShuttingDown), Message: "stopping"}
	default:
		return ipc.Response{OK: false, State: string(e.State()), Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

func (e *Engine) statusResponse() ipc.Response {
	resp := ipc.Response{OK: true, State: string(e.State())}
	status := e.status.Load()
	if status == nil {
		return resp
	}

	resp.Detail = map[string]string{
		"enabled":    strconv.FormatBool(status.Enabled),
		"matches":    strconv.Itoa(status.Matches),
		"partials":   strconv.Itoa(status.Partials),
		"events":     strconv.FormatUint(e.events.Load(), 10),
		"expansions": strconv.FormatUint(e.expansions.Load(), 10),
		"failures":   strconv.FormatUint(e.failures.Load(), 10),
	}
	if status.MatchSetKey != "" {
		resp.Detail["match_set"] = status.MatchSetKey
	}
	if status.Context.Class != "" {
		resp.Detail["app_class"] = status.Context.Class
	}
	if status.Context.Title != "" {
		resp.Detail["app_title"] = status.Context.Title
	}
	if status.Enabled {
		resp.Message = "expanding"
	} else {
		resp.Message = "paused"
	}
	return resp
}

func (e *Engine) setEnabled(next func(bool) bool) ipc.Response {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	state := e.State()
	if state == fsm.StateShuttingDown || state == fsm.StateStopped {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot change expansion while %s", state)}
	}

	enabled := next(e.processor.Enabled())
	e.processor.SetEnabled(enabled)
	e.publishStatus()

	message := "expansion disabled"
	if enabled {
		message = "expansion enabled"
	}
	return ipc.Response{OK: true, State: string(state), Message: message}
}

func (e *Engine) reload() ipc.Response {
	state := string(e.State())
	if e.reloader == nil {
		return ipc.Response{OK: false, State: state, Error: "reload unavailable"}
	}

	loaded, err := e.reloader.Reload()
	if err != nil {
		e.logger.Warn().Err(err).Msg("reload rejected")
		return ipc.Response{OK: false, State: state, Error: err.Error()}
	}
	e.processor.Invalidate()

	resp := ipc.Response{
		OK:      true,
		State:   state,
		Message: fmt.Sprintf("reloaded %d matches", len(loaded.Matches)),
	}
	if len(loaded.Warnings) > 0 {
		resp.Detail = map[string]string{"warnings": strconv.Itoa(len(loaded.Warnings))}
	}
	return resp
}
