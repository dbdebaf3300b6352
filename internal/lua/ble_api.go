package lua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bledb"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/profile"
)

// BLEAPI exposes a Central to Lua as the global "ble" table:
//
//	ble.device                    address, connection and attribute counts
//	ble.profile()                 services -> characteristics -> descriptors
//	ble.profile_json()            the profile as indented JSON
//	ble.handle(uuid)              attribute handle, or nil, err
//	ble.read(uuid | handle)       value string, or nil, err
//	ble.write(uuid | handle, s)   true, or nil, err
//	ble.enable_notify(uuid)       boolean
//	ble.receive()                 {handle=, type=, value=}, or nil, err
//	ble.name(uuid16)              assigned number name
//	ble.hex(s)                    upper case hex
//	ble.sleep(ms)
//
// Go errors never raise; they come back as a trailing error string.
type BLEAPI struct {
	central   *device.Central
	LuaEngine *LuaEngine
	logger    *logrus.Logger
	ctx       context.Context
}

// NewBLEAPI creates the API and registers it in a fresh engine
func NewBLEAPI(central *device.Central, logger *logrus.Logger) *BLEAPI {
	if logger == nil {
		logger = logrus.New()
	}
	api := &BLEAPI{
		central:   central,
		logger:    logger,
		LuaEngine: NewLuaEngine(logger),
		ctx:       context.Background(),
	}
	api.registerLuaAPI()
	return api
}

// ExecuteScript runs script with ctx bound to every ble.* call it makes
func (api *BLEAPI) ExecuteScript(ctx context.Context, script string) error {
	api.ctx = ctx
	defer func() { api.ctx = context.Background() }()
	return api.LuaEngine.ExecuteScript(ctx, script)
}

func (api *BLEAPI) LoadScriptFile(filename string) error {
	return api.LuaEngine.LoadScriptFile(filename)
}

func (api *BLEAPI) LoadScript(script, name string) error {
	return api.LuaEngine.LoadScript(script, name)
}

// Reset recreates the Lua state with the API registered again
func (api *BLEAPI) Reset() {
	api.LuaEngine.Reset()
	api.registerLuaAPI()
}

func (api *BLEAPI) OutputChannel() <-chan LuaOutputRecord {
	return api.LuaEngine.OutputChannel()
}

func (api *BLEAPI) Close() {
	api.LuaEngine.Close()
}

func (api *BLEAPI) registerLuaAPI() {
	api.LuaEngine.DoWithState(func(L *lua.State) interface{} {
		L.NewTable()

		api.registerDeviceInfo(L)
		api.setFunction(L, "profile", api.luaProfile)
		api.setFunction(L, "profile_json", api.luaProfileJSON)
		api.setFunction(L, "handle", api.luaHandle)
		api.setFunction(L, "read", api.luaRead)
		api.setFunction(L, "write", api.luaWrite)
		api.setFunction(L, "enable_notify", api.luaEnableNotify)
		api.setFunction(L, "receive", api.luaReceive)
		api.setFunction(L, "name", luaName)
		api.setFunction(L, "hex", luaHex)
		api.setFunction(L, "sleep", api.luaSleep)

		L.SetGlobal("ble")
		return nil
	})
}

// setFunction stores a wrapped Go function in the table on top of the stack
func (api *BLEAPI) setFunction(L *lua.State, name string, fn func(*lua.State) int) {
	L.PushGoFunction(api.LuaEngine.SafeWrapGoFunction("ble."+name, fn))
	L.SetField(-2, name)
}

func (api *BLEAPI) registerDeviceInfo(L *lua.State) {
	L.NewTable()
	if api.central != nil {
		dev := api.central.Profile()
		services, chars, descs := dev.Counts()

		L.PushString(dev.MAC.String())
		L.SetField(-2, "address")
		L.PushInteger(int64(dev.ConnectionHandle))
		L.SetField(-2, "connection")
		L.PushInteger(int64(services))
		L.SetField(-2, "services")
		L.PushInteger(int64(chars))
		L.SetField(-2, "characteristics")
		L.PushInteger(int64(descs))
		L.SetField(-2, "descriptors")
	}
	L.SetField(-2, "device")
}

// pushError pushes nil, err and returns the result count
func pushError(L *lua.State, err error) int {
	L.PushNil()
	L.PushString(err.Error())
	return 2
}

func (api *BLEAPI) checkCentral() error {
	if api.central == nil {
		return errors.New("no device")
	}
	return api.ctx.Err()
}

// handleArg resolves argument i: a number is a handle, a string a UUID looked up in
// the profile.
func (api *BLEAPI) handleArg(L *lua.State, i int) (uint16, error) {
	switch L.Type(i) {
	case lua.LUA_TNUMBER:
		h := L.ToInteger(i)
		if h < 0 || h > 0xFFFF {
			return 0, fmt.Errorf("handle %d out of range", h)
		}
		return uint16(h), nil
	case lua.LUA_TSTRING:
		return api.central.LookupHandle(L.ToString(i))
	default:
		return 0, fmt.Errorf("argument %d: expected uuid string or handle", i)
	}
}

func (api *BLEAPI) luaProfile(L *lua.State) int {
	if err := api.checkCentral(); err != nil {
		return pushError(L, err)
	}
	pushProfile(L, api.central.Profile())
	return 1
}

func (api *BLEAPI) luaProfileJSON(L *lua.State) int {
	if err := api.checkCentral(); err != nil {
		return pushError(L, err)
	}
	var sb strings.Builder
	if err := api.central.Profile().WriteJSON(&sb); err != nil {
		return pushError(L, err)
	}
	L.PushString(sb.String())
	return 1
}

func (api *BLEAPI) luaHandle(L *lua.State) int {
	if err := api.checkCentral(); err != nil {
		return pushError(L, err)
	}
	h, err := api.handleArg(L, 1)
	if err != nil {
		return pushError(L, err)
	}
	L.PushInteger(int64(h))
	return 1
}

func (api *BLEAPI) luaRead(L *lua.State) int {
	if err := api.checkCentral(); err != nil {
		return pushError(L, err)
	}
	h, err := api.handleArg(L, 1)
	if err != nil {
		return pushError(L, err)
	}
	value, err := api.central.ReadHandle(api.ctx, h)
	if err != nil {
		return pushError(L, err)
	}
	L.PushString(string(value))
	return 1
}

func (api *BLEAPI) luaWrite(L *lua.State) int {
	if err := api.checkCentral(); err != nil {
		return pushError(L, err)
	}
	h, err := api.handleArg(L, 1)
	if err != nil {
		return pushError(L, err)
	}
	if L.Type(2) != lua.LUA_TSTRING && L.Type(2) != lua.LUA_TNUMBER {
		return pushError(L, errors.New("argument 2: expected data string"))
	}
	if err := api.central.WriteHandle(api.ctx, h, []byte(L.ToString(2))); err != nil {
		return pushError(L, err)
	}
	L.PushBoolean(true)
	return 1
}

func (api *BLEAPI) luaEnableNotify(L *lua.State) int {
	if err := api.checkCentral(); err != nil {
		return pushError(L, err)
	}
	parsed, err := bledb.ParseUUID(L.ToString(1))
	if err != nil {
		return pushError(L, err)
	}
	L.PushBoolean(api.central.EnableNotification(api.ctx, parsed.UUID128))
	return 1
}

func (api *BLEAPI) luaReceive(L *lua.State) int {
	if err := api.checkCentral(); err != nil {
		return pushError(L, err)
	}
	n, err := api.central.ReceiveNotification(api.ctx)
	if err != nil {
		return pushError(L, err)
	}
	L.NewTable()
	L.PushInteger(int64(n.Handle))
	L.SetField(-2, "handle")
	L.PushInteger(int64(n.Type))
	L.SetField(-2, "type")
	L.PushString(string(n.Value))
	L.SetField(-2, "value")
	return 1
}

func (api *BLEAPI) luaSleep(L *lua.State) int {
	ms := L.ToInteger(1)
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-api.ctx.Done():
		return pushError(L, api.ctx.Err())
	}
	L.PushBoolean(true)
	return 1
}

func luaName(L *lua.State) int {
	parsed, err := bledb.ParseUUID(L.ToString(1))
	if err != nil || !parsed.Short {
		L.PushString("")
		return 1
	}
	L.PushString(bledb.Name(parsed.UUID16))
	return 1
}

func luaHex(L *lua.State) int {
	L.PushString(fmt.Sprintf("%X", L.ToString(1)))
	return 1
}

// pushProfile pushes an array of services. Tables use Lua's 1-based indices.
func pushProfile(L *lua.State, dev *profile.Device) {
	L.NewTable()
	for i, svc := range dev.Services {
		L.PushInteger(int64(i + 1))
		L.NewTable()
		L.PushString(svc.UUID128.ShortString())
		L.SetField(-2, "uuid")
		L.PushInteger(int64(svc.StartGroupHandle))
		L.SetField(-2, "start_handle")
		L.PushInteger(int64(svc.EndGroupHandle))
		L.SetField(-2, "end_handle")

		L.NewTable()
		for j, ch := range svc.Characteristics {
			L.PushInteger(int64(j + 1))
			pushCharacteristic(L, ch)
			L.SetTable(-3)
		}
		L.SetField(-2, "characteristics")

		L.SetTable(-3)
	}
}

func pushCharacteristic(L *lua.State, ch profile.Characteristic) {
	L.NewTable()
	L.PushString(ch.UUID128.ShortString())
	L.SetField(-2, "uuid")
	L.PushInteger(int64(ch.StartHandle))
	L.SetField(-2, "start_handle")
	L.PushInteger(int64(ch.ValueHandle))
	L.SetField(-2, "value_handle")
	L.PushString(strings.Join(ch.PropertyNames(), ","))
	L.SetField(-2, "properties")

	L.NewTable()
	for k, d := range ch.Descriptors {
		L.PushInteger(int64(k + 1))
		L.NewTable()
		L.PushInteger(int64(d.Handle))
		L.SetField(-2, "handle")
		L.PushString(fmt.Sprintf("%04x", d.UUID16))
		L.SetField(-2, "uuid")
		L.SetTable(-3)
	}
	L.SetField(-2, "descriptors")
}
