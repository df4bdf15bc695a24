package engine

import (
	"errors"
	"fmt"

	"voxelsniper.dev/internal/protocol"
	"voxelsniper.dev/internal/sim/brush"
	"voxelsniper.dev/internal/sim/filter"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/sniper"
)

// cmdResult is the outcome of one command, reported back as an ACK.
type cmdResult struct {
	code    string
	message string
}

func ok() cmdResult { return cmdResult{} }

func fail(code, format string, args ...any) cmdResult {
	return cmdResult{code: code, message: fmt.Sprintf(format, args...)}
}

func (e *Engine) handleAct(tick uint64, env ActionEnvelope) {
	s, found := e.snipers[env.SniperID]
	if !found {
		e.log.Printf("act from %s: %v", env.SniperID, errNoSniper)
		return
	}
	for _, cmd := range env.Act.Commands {
		res := e.applyCommand(tick, s, cmd)
		e.sendJSON(s.ID, protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			AckFor:          cmd.ID,
			Accepted:        res.code == "",
			Code:            res.code,
			Message:         res.message,
			ServerTick:      tick,
		})
	}
}

func (e *Engine) applyCommand(tick uint64, s *sniper.Sniper, cmd protocol.CommandReq) cmdResult {
	switch cmd.Type {
	case protocol.CmdBrush:
		if err := s.SetBrush(cmd.Brush); err != nil {
			return fail(protocol.ErrNotFound, "%v", err)
		}
		return ok()

	case protocol.CmdMaterial, protocol.CmdMaskMaterial:
		m, found := e.mats.Lookup(cmd.Material)
		if !found {
			s.Send(e.cfg.Messages.MaterialNotFound)
			return fail(protocol.ErrNotFound, "unknown material %q", cmd.Material)
		}
		if cmd.Type == protocol.CmdMaterial {
			s.SetMaterial(m)
		} else {
			s.SetMaskMaterial(m)
		}
		return ok()

	case protocol.CmdSize:
		if cmd.Size == nil {
			return fail(protocol.ErrBadRequest, "missing size")
		}
		s.SetSize(*cmd.Size)
		return ok()

	case protocol.CmdSetVar:
		if err := s.Vars.SetParsed(cmd.Key, cmd.Value); err != nil {
			return fail(protocol.ErrBadRequest, "%v", err)
		}
		return ok()

	case protocol.CmdReset:
		s.ResetSettings()
		return ok()

	case protocol.CmdSnipe:
		target, res := e.target(cmd)
		if res.code != "" {
			return res
		}
		return snipeResult(s.Snipe(e.store, target))

	case protocol.CmdCancel:
		n := s.Cancel()
		return cmdResult{message: fmt.Sprintf("cancelled %d", n)}

	case protocol.CmdUndo:
		n := s.UndoHistory(e.store, atLeastOne(cmd.N))
		return cmdResult{message: fmt.Sprintf("undid %d", n)}

	case protocol.CmdRedo:
		n := s.RedoHistory(e.store, atLeastOne(cmd.N))
		return cmdResult{message: fmt.Sprintf("redid %d", n)}

	case protocol.CmdSaveSection:
		return e.saveSection(tick, s, cmd.Name)

	case protocol.CmdGetSection:
		return e.getSection(s, cmd.Name)

	case protocol.CmdPasteSection:
		target, res := e.target(cmd)
		if res.code != "" {
			return res
		}
		return e.pasteSection(s, cmd.Name, target)

	default:
		return fail(protocol.ErrBadRequest, "unknown command type %q", cmd.Type)
	}
}

func (e *Engine) target(cmd protocol.CommandReq) (mathx.Vec3i, cmdResult) {
	if cmd.Target == nil {
		return mathx.Vec3i{}, fail(protocol.ErrBadRequest, "missing target")
	}
	t := mathx.FromArray(*cmd.Target)
	if !e.store.InBounds(t.X, t.Y, t.Z) {
		return t, fail(protocol.ErrInvalidTarget, "target %s out of bounds", t)
	}
	return t, ok()
}

func snipeResult(err error) cmdResult {
	switch {
	case err == nil:
		return ok()
	case errors.Is(err, sniper.ErrBusy):
		return fail(protocol.ErrBusy, "%v", err)
	case errors.Is(err, filter.ErrMissingPrerequisite):
		return fail(protocol.ErrMissingPrerequisite, "%v", err)
	case errors.Is(err, brush.ErrUnknownBrush):
		return fail(protocol.ErrNotFound, "%v", err)
	case errors.Is(err, brush.ErrNoTarget):
		return fail(protocol.ErrInvalidTarget, "%v", err)
	default:
		return fail(protocol.ErrInternal, "%v", err)
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
