// Package lua runs user scripts against a discovered GATT profile. Scripts get a
// global "ble" table bound to a device.Central; everything they print is captured
// as output records.
package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/ringchan"
)

// Output record sources
const (
	SourceStdout = "stdout"
	SourceStderr = "stderr"
)

// LuaOutputRecord represents a single output record from Lua script execution
type LuaOutputRecord struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Lua error types
const (
	ErrTypeSyntax  = "syntax"
	ErrTypeRuntime = "runtime"
	ErrTypeAPI     = "api"
)

// LuaError represents detailed Lua execution errors
type LuaError struct {
	Type       string
	Message    string
	Line       int
	Source     string
	Underlying error
}

func (e *LuaError) Error() string {
	parts := []string{}
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("in %s", e.Source))
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}

	prefix := fmt.Sprintf("Lua %s error", e.Type)
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s (%s)", prefix, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *LuaError) Unwrap() error {
	return e.Underlying
}

// Is matches another *LuaError of the same type.
func (e *LuaError) Is(target error) bool {
	var luaErr *LuaError
	if errors.As(target, &luaErr) {
		return e.Type == luaErr.Type
	}
	return false
}

// chunk:line: message, where chunk is either a file name or [string "..."]
var luaMessageRe = regexp.MustCompile(`(?s)^(.*?):(\d+): (.*)$`)

func newLuaError(errType, source, raw string, underlying error) *LuaError {
	le := &LuaError{Type: errType, Message: raw, Source: source, Underlying: underlying}
	if m := luaMessageRe.FindStringSubmatch(raw); m != nil {
		if line, err := strconv.Atoi(m[2]); err == nil {
			le.Line = line
			le.Message = m[3]
		}
	}
	return le
}

// LuaEngine owns one Lua state and captures everything the script prints
type LuaEngine struct {
	state      *lua.State
	stateMutex sync.Mutex
	logger     *logrus.Logger
	scriptCode string
	scriptName string
	outputChan *ringchan.RingChannel[LuaOutputRecord]
}

// NewLuaEngine creates an engine with print() redirected to the output channel
func NewLuaEngine(logger *logrus.Logger) *LuaEngine {
	if logger == nil {
		logger = logrus.New()
	}
	engine := &LuaEngine{
		logger:     logger,
		outputChan: ringchan.New[LuaOutputRecord](256),
	}

	engine.Reset()

	logger.Debug("Lua engine initialized")
	return engine
}

// DoWithState runs callback with the state locked. It returns nil once the engine is closed.
func (e *LuaEngine) DoWithState(callback func(*lua.State) interface{}) interface{} {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	if e.state == nil {
		return nil
	}
	return callback(e.state)
}

// SafeWrapGoFunction converts a Go panic inside fn into the (nil, message) pair Lua
// callers expect, so a bad argument never tears down the host.
func (e *LuaEngine) SafeWrapGoFunction(name string, fn func(*lua.State) int) lua.LuaGoFunction {
	return func(L *lua.State) (n int) {
		defer func() {
			if r := recover(); r != nil {
				e.logger.WithFields(logrus.Fields{
					"function": name,
					"panic":    r,
				}).Error("Lua API function panicked")
				L.PushNil()
				L.PushString(fmt.Sprintf("%s: %v", name, r))
				n = 2
			}
		}()
		return fn(L)
	}
}

func (e *LuaEngine) emit(source, content string) {
	if dropped := e.outputChan.Send(LuaOutputRecord{
		Content:   content,
		Timestamp: time.Now(),
		Source:    source,
	}); dropped {
		e.logger.Warn("Lua output buffer full, oldest record dropped")
	}
}

func (e *LuaEngine) registerPrintCapture(L *lua.State) {
	L.PushGoFunction(func(L *lua.State) int {
		top := L.GetTop()
		parts := make([]string, 0, top)

		for i := 1; i <= top; i++ {
			switch L.Type(i) {
			case lua.LUA_TNIL:
				parts = append(parts, "nil")
			case lua.LUA_TBOOLEAN:
				parts = append(parts, strconv.FormatBool(L.ToBoolean(i)))
			case lua.LUA_TNUMBER:
				parts = append(parts, formatNumber(L.ToNumber(i)))
			case lua.LUA_TSTRING:
				parts = append(parts, L.ToString(i))
			default:
				// tables, functions, threads, userdata
				L.GetGlobal("tostring")
				L.PushValue(i)
				L.Call(1, 1)
				parts = append(parts, L.ToString(-1))
				L.Pop(1)
			}
		}

		e.emit(SourceStdout, strings.Join(parts, "\t")+"\n")
		return 0
	})
	L.SetGlobal("print")
}

// formatNumber renders numbers the way Lua's tostring does.
func formatNumber(v float64) string {
	return fmt.Sprintf("%.14g", v)
}

// OutputChannel returns the output channel
func (e *LuaEngine) OutputChannel() <-chan LuaOutputRecord {
	return e.outputChan.C()
}

// LoadScriptFile loads a Lua script from a file
func (e *LuaEngine) LoadScriptFile(filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", filename, err)
	}
	return e.LoadScript(string(content), filename)
}

// LoadScript compiles a script without running it and keeps it for ExecuteScript
func (e *LuaEngine) LoadScript(script, name string) error {
	if strings.TrimSpace(script) == "" {
		return &LuaError{Type: ErrTypeAPI, Message: "empty script", Source: name}
	}

	var loadErr error
	e.DoWithState(func(L *lua.State) interface{} {
		if status := L.LoadString(script); status != 0 {
			loadErr = newLuaError(ErrTypeSyntax, name, L.ToString(-1), nil)
		}
		L.Pop(1)
		return nil
	})
	if loadErr != nil {
		e.emit(SourceStderr, loadErr.Error()+"\n")
		return loadErr
	}

	e.scriptCode = script
	e.scriptName = name
	return nil
}

// ExecuteScript runs script, or the loaded one when script is empty
func (e *LuaEngine) ExecuteScript(ctx context.Context, script string) error {
	if script != "" {
		if err := e.LoadScript(script, "ad-hoc script"); err != nil {
			return err
		}
	}
	if e.scriptCode == "" {
		return &LuaError{Type: ErrTypeAPI, Message: "no script loaded"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var execErr error
	e.DoWithState(func(L *lua.State) interface{} {
		if err := L.DoString(e.scriptCode); err != nil {
			execErr = newLuaError(ErrTypeRuntime, e.scriptName, err.Error(), err)
		}
		return nil
	})
	if execErr != nil {
		e.emit(SourceStderr, execErr.Error()+"\n")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, execErr)
		}
	}
	return execErr
}

// Reset recreates the Lua state
func (e *LuaEngine) Reset() {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	if e.state != nil {
		e.state.Close()
	}
	e.state = lua.NewState()
	e.state.OpenLibs()
	e.registerPrintCapture(e.state)
	e.scriptCode = ""
	e.scriptName = ""
}

// Close releases the state and closes the output channel. Buffered records stay readable.
func (e *LuaEngine) Close() {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	if e.state != nil {
		e.state.Close()
		e.state = nil
	}
	e.outputChan.Close()
}

// SetGlobal sets a global variable in the Lua state
func (e *LuaEngine) SetGlobal(name string, value interface{}) error {
	res := e.DoWithState(func(state *lua.State) any {
		switch v := value.(type) {
		case string:
			state.PushString(v)
		case int:
			state.PushInteger(int64(v))
		case int64:
			state.PushInteger(v)
		case float64:
			state.PushNumber(v)
		case bool:
			state.PushBoolean(v)
		case map[string]string:
			state.NewTable()
			for k, s := range v {
				state.PushString(s)
				state.SetField(-2, k)
			}
		default:
			return fmt.Errorf("unsupported type %T for global variable %s", value, name)
		}

		state.SetGlobal(name)
		return nil
	})

	if err, ok := res.(error); ok {
		return err
	}
	return nil
}

// GetGlobal returns a string, number or boolean global; anything else is nil
func (e *LuaEngine) GetGlobal(name string) interface{} {
	return e.DoWithState(func(state *lua.State) any {
		state.GetGlobal(name)
		defer state.Pop(1)

		switch state.Type(-1) {
		case lua.LUA_TNUMBER:
			return state.ToNumber(-1)
		case lua.LUA_TSTRING:
			return state.ToString(-1)
		case lua.LUA_TBOOLEAN:
			return state.ToBoolean(-1)
		default:
			return nil
		}
	})
}

// GetGlobalString gets a string global variable from the Lua state
func (e *LuaEngine) GetGlobalString(name string) (string, error) {
	v, ok := e.GetGlobal(name).(string)
	if !ok {
		return "", fmt.Errorf("global variable %s is not a string", name)
	}
	return v, nil
}

// GetGlobalInteger gets an integer global variable from the Lua state
func (e *LuaEngine) GetGlobalInteger(name string) (int, error) {
	v, ok := e.GetGlobal(name).(float64)
	if !ok {
		return 0, fmt.Errorf("global variable %s is not a number", name)
	}
	return int(v), nil
}
