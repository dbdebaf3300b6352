package bgapi

import "github.com/srg/bgatt/internal/bledb"

// Builders for the module side of the protocol: responses and events as a radio module
// emits them. They back the simulator and the tests.

// ResultResponse builds a response that carries a result. Connection oriented commands
// get the connection byte first.
func ResultResponse(class, id, conn byte, result uint16) Packet {
	if hasConnection(class, id) {
		return Frame(false, class, id, putLE16([]byte{conn}, result))
	}
	return Frame(false, class, id, putLE16(nil, result))
}

// ConnectionGetStatusResponse builds the connection_get_status response.
func ConnectionGetStatusResponse(conn byte) Packet {
	return Frame(false, ClassConnection, CmdConnectionGetStatus, []byte{conn})
}

// ConnectDirectResponse builds the gap_connect_direct response.
func ConnectDirectResponse(result uint16, conn byte) Packet {
	return Frame(false, ClassGap, CmdGapConnectDirect, append(putLE16(nil, result), conn))
}

// SystemInfoResponse builds the system_get_info response.
func SystemInfoResponse(info SystemInfo) Packet {
	payload := putLE16(nil, info.Major)
	payload = putLE16(payload, info.Minor)
	payload = putLE16(payload, info.Patch)
	payload = putLE16(payload, info.Build)
	payload = putLE16(payload, info.LLVersion)
	payload = append(payload, info.Protocol, info.Hardware)
	return Frame(false, ClassSystem, CmdSystemGetInfo, payload)
}

// GroupFoundEvent builds attclient_group_found. A 16-bit UUID is used when the service
// UUID lies on the SIG base, the reversed 128-bit form otherwise.
func GroupFoundEvent(conn byte, start, end uint16, u bledb.UUID128) Packet {
	payload := putLE16([]byte{conn}, start)
	payload = putLE16(payload, end)
	payload = appendUUID(payload, u)
	return Frame(true, ClassAttClient, EvtAttClientGroupFound, payload)
}

// CharacteristicDeclarationEvent builds the attclient_attribute_value event a
// read_by_type for 0x2803 yields for one declaration.
func CharacteristicDeclarationEvent(conn byte, declHandle uint16, props uint8, valueHandle uint16, u bledb.UUID128) Packet {
	value := putLE16([]byte{props}, valueHandle)
	if u16, ok := u.UUID16(); ok {
		value = putLE16(value, u16)
	} else {
		value = append(value, u.Wire()...)
	}
	return AttributeValueEvent(conn, declHandle, AttValueReadByType, value)
}

// AttributeValueEvent builds attclient_attribute_value.
func AttributeValueEvent(conn byte, handle uint16, typ byte, value []byte) Packet {
	payload := putLE16([]byte{conn}, handle)
	payload = append(payload, typ, byte(len(value)))
	payload = append(payload, value...)
	return Frame(true, ClassAttClient, EvtAttClientAttributeValue, payload)
}

// FindInformationFoundEvent builds attclient_find_information_found.
func FindInformationFoundEvent(conn byte, handle, uuid16 uint16) Packet {
	payload := putLE16([]byte{conn}, handle)
	payload = append(payload, uuid16Len)
	payload = putLE16(payload, uuid16)
	return Frame(true, ClassAttClient, EvtAttClientFindInfoFound, payload)
}

// ProcedureCompletedEvent builds attclient_procedure_completed.
func ProcedureCompletedEvent(conn byte, result, handle uint16) Packet {
	payload := putLE16([]byte{conn}, result)
	payload = putLE16(payload, handle)
	return Frame(true, ClassAttClient, EvtAttClientProcedureDone, payload)
}

// ScanResponseEvent builds gap_scan_response. data is an AD payload with its leading
// length byte, as ParseScanResponse returns it.
func ScanResponseEvent(s ScanResponse) Packet {
	payload := []byte{byte(s.RSSI), s.PacketType}
	for i := 5; i >= 0; i-- {
		payload = append(payload, s.Sender[i])
	}
	payload = append(payload, s.AddressType, s.Bond)
	if len(s.Data) == 0 {
		payload = append(payload, 0)
	} else {
		payload = append(payload, s.Data...)
	}
	return Frame(true, ClassGap, EvtGapScanResponse, payload)
}

// ConnectionStatusEvent builds connection_status.
func ConnectionStatusEvent(c ConnectionStatus) Packet {
	payload := []byte{c.Connection, c.Flags}
	for i := 5; i >= 0; i-- {
		payload = append(payload, c.Address[i])
	}
	payload = append(payload, c.AddressType)
	payload = putLE16(payload, c.Interval)
	payload = putLE16(payload, c.Timeout)
	payload = putLE16(payload, c.Latency)
	payload = append(payload, c.Bonding)
	return Frame(true, ClassConnection, EvtConnectionStatus, payload)
}

// DisconnectedEvent builds connection_disconnected.
func DisconnectedEvent(conn byte, reason uint16) Packet {
	return Frame(true, ClassConnection, EvtConnectionDisconnected, putLE16([]byte{conn}, reason))
}

func appendUUID(b []byte, u bledb.UUID128) []byte {
	if u16, ok := u.UUID16(); ok {
		b = append(b, uuid16Len)
		return putLE16(b, u16)
	}
	b = append(b, uuid128Len)
	return append(b, u.Wire()...)
}
