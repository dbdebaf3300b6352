package bgatt

import _ "embed"

// DefaultInspectLuaScript is the script the run command uses when none is given. It
// prints the profile and reads every readable characteristic.
//
//go:embed scripts/inspect.lua
var DefaultInspectLuaScript string
