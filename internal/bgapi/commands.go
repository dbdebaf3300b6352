package bgapi

// Command builders. They are pure: no I/O, deterministic output. The caller sends the
// frame and consumes exactly one response before waiting for events.

// ReadByGroupType builds attclient_read_by_group_type.
//
//	[4] connection [5:7) start [7:9) end [9] uuid length (2) [10:12) uuid
func ReadByGroupType(conn byte, start, end, uuid16 uint16) Packet {
	return Frame(false, ClassAttClient, CmdAttClientReadByGroup, rangeWithUUID(conn, start, end, uuid16))
}

// ReadByType builds attclient_read_by_type, same layout as ReadByGroupType.
func ReadByType(conn byte, start, end, uuid16 uint16) Packet {
	return Frame(false, ClassAttClient, CmdAttClientReadByType, rangeWithUUID(conn, start, end, uuid16))
}

// DiscoverServices requests every primary service declaration on the link.
func DiscoverServices(conn byte) Packet {
	return ReadByGroupType(conn, FirstHandle, LastHandle, UUIDPrimaryService)
}

// DiscoverCharacteristics requests the characteristic declarations strictly inside a
// service group: [start+1, end-1].
func DiscoverCharacteristics(conn byte, serviceStart, serviceEnd uint16) Packet {
	return ReadByType(conn, serviceStart+1, serviceEnd-1, UUIDCharacteristic)
}

// FindInformation builds attclient_find_information.
//
//	[4] connection [5:7) start [7:9) end
func FindInformation(conn byte, start, end uint16) Packet {
	payload := []byte{conn}
	payload = putLE16(payload, start)
	payload = putLE16(payload, end)
	return Frame(false, ClassAttClient, CmdAttClientFindInfo, payload)
}

// ReadByHandle builds attclient_read_by_handle.
func ReadByHandle(conn byte, handle uint16) Packet {
	return Frame(false, ClassAttClient, CmdAttClientReadByHandle, putLE16([]byte{conn}, handle))
}

// AttributeWrite builds attclient_attribute_write. Data longer than 255 bytes is
// truncated by the length byte and must be rejected by the caller.
func AttributeWrite(conn byte, handle uint16, data []byte) Packet {
	payload := putLE16([]byte{conn}, handle)
	payload = append(payload, byte(len(data)))
	payload = append(payload, data...)
	return Frame(false, ClassAttClient, CmdAttClientWrite, payload)
}

// ConnectionDisconnect builds connection_disconnect.
func ConnectionDisconnect(conn byte) Packet {
	return Frame(false, ClassConnection, CmdConnectionDisconnect, []byte{conn})
}

// ConnectionGetStatus builds connection_get_status.
func ConnectionGetStatus(conn byte) Packet {
	return Frame(false, ClassConnection, CmdConnectionGetStatus, []byte{conn})
}

// GapDiscover builds gap_discover.
func GapDiscover(mode byte) Packet {
	return Frame(false, ClassGap, CmdGapDiscover, []byte{mode})
}

// GapEndProcedure builds gap_end_procedure.
func GapEndProcedure() Packet {
	return Frame(false, ClassGap, CmdGapEndProcedure, nil)
}

// GapSetScanParameters builds gap_set_scan_parameters. Interval and window are in
// units of 625us.
func GapSetScanParameters(interval, window uint16, active bool) Packet {
	payload := putLE16(nil, interval)
	payload = putLE16(payload, window)
	if active {
		payload = append(payload, 1)
	} else {
		payload = append(payload, 0)
	}
	return Frame(false, ClassGap, CmdGapSetScanParameters, payload)
}

// ConnectParams are the gap_connect_direct link parameters.
type ConnectParams struct {
	IntervalMin uint16 // units of 1.25ms
	IntervalMax uint16 // units of 1.25ms
	Timeout     uint16 // units of 10ms
	Latency     uint16
}

// DefaultConnectParams are the fixed parameters used for every connection.
var DefaultConnectParams = ConnectParams{IntervalMin: 60, IntervalMax: 76, Timeout: 100, Latency: 0}

// GapConnectDirect builds gap_connect_direct. mac is in display order (most
// significant byte first); the frame carries it least significant byte first.
func GapConnectDirect(mac [6]byte, addrType byte, p ConnectParams) Packet {
	payload := make([]byte, 0, 15)
	for i := 5; i >= 0; i-- {
		payload = append(payload, mac[i])
	}
	payload = append(payload, addrType)
	payload = putLE16(payload, p.IntervalMin)
	payload = putLE16(payload, p.IntervalMax)
	payload = putLE16(payload, p.Timeout)
	payload = putLE16(payload, p.Latency)
	return Frame(false, ClassGap, CmdGapConnectDirect, payload)
}

// SystemHello builds system_hello.
func SystemHello() Packet {
	return Frame(false, ClassSystem, CmdSystemHello, nil)
}

// SystemGetInfo builds system_get_info.
func SystemGetInfo() Packet {
	return Frame(false, ClassSystem, CmdSystemGetInfo, nil)
}

func rangeWithUUID(conn byte, start, end, uuid16 uint16) []byte {
	payload := []byte{conn}
	payload = putLE16(payload, start)
	payload = putLE16(payload, end)
	payload = append(payload, uuid16Len)
	return putLE16(payload, uuid16)
}
