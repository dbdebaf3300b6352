package simulator

import "github.com/srg/bgatt/internal/bgapi"

// Canned fault hooks. Hooks run under the simulator lock, so their counters need no
// synchronisation of their own.

// DropEvents keeps only the response for the given command: the client sees the
// command accepted and then nothing, which it must treat as a lost link.
func DropEvents(class, id byte) FaultHook {
	return func(cmd bgapi.Packet, out []bgapi.Packet) []bgapi.Packet {
		if cmd.Class() == class && cmd.ID() == id && len(out) > 0 {
			return out[:1]
		}
		return out
	}
}

// DropEventsAfter lets the first n commands through untouched and keeps only the
// responses afterwards.
func DropEventsAfter(n int) FaultHook {
	seen := 0
	return func(cmd bgapi.Packet, out []bgapi.Packet) []bgapi.Packet {
		seen++
		if seen <= n || len(out) == 0 {
			return out
		}
		return out[:1]
	}
}

// InjectEvents inserts extra events right after the response to the given command.
func InjectEvents(class, id byte, extra ...bgapi.Packet) FaultHook {
	return func(cmd bgapi.Packet, out []bgapi.Packet) []bgapi.Packet {
		if cmd.Class() != class || cmd.ID() != id || len(out) == 0 {
			return out
		}
		patched := append([]bgapi.Packet{out[0]}, extra...)
		return append(patched, out[1:]...)
	}
}

// Silence drops everything, responses included.
func Silence() FaultHook {
	return func(bgapi.Packet, []bgapi.Packet) []bgapi.Packet {
		return nil
	}
}

// Chain applies hooks in order.
func Chain(hooks ...FaultHook) FaultHook {
	return func(cmd bgapi.Packet, out []bgapi.Packet) []bgapi.Packet {
		for _, h := range hooks {
			out = h(cmd, out)
		}
		return out
	}
}
