package bgapi

import "fmt"

// ParseResult decodes the result code of a command response. Connection oriented
// responses carry [4] connection [5:7) result; the others [4:6) result.
func ParseResult(p Packet) (uint16, error) {
	if p.IsEvent() {
		return 0, fmt.Errorf("not a response: %s", p)
	}
	if hasConnection(p.Class(), p.ID()) {
		if len(p) < 7 {
			return 0, ErrShortPacket
		}
		return le16(p, 5), nil
	}
	if len(p) < 6 {
		return 0, ErrShortPacket
	}
	return le16(p, 4), nil
}

func hasConnection(class, id byte) bool {
	switch class {
	case ClassAttClient:
		return true
	case ClassConnection:
		// connection_disconnect carries a result, connection_get_status does not
		return id == CmdConnectionDisconnect
	}
	return false
}

// ConnectDirectResult is the gap_connect_direct response.
type ConnectDirectResult struct {
	Result     uint16
	Connection byte
}

// ParseConnectDirectResult decodes [4:6) result [6] connection handle.
func ParseConnectDirectResult(p Packet) (ConnectDirectResult, error) {
	if !p.IsResponse(ClassGap, CmdGapConnectDirect) {
		return ConnectDirectResult{}, fmt.Errorf("not a connect direct response: %s", p)
	}
	if len(p) < 7 {
		return ConnectDirectResult{}, ErrShortPacket
	}
	return ConnectDirectResult{Result: le16(p, 4), Connection: p[6]}, nil
}

// SystemInfo is the system_get_info response.
type SystemInfo struct {
	Major     uint16
	Minor     uint16
	Patch     uint16
	Build     uint16
	LLVersion uint16
	Protocol  byte
	Hardware  byte
}

// Version renders major.minor.patch, suitable for semver parsing.
func (s SystemInfo) Version() string {
	return fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
}

// ParseSystemInfo decodes five little endian uint16 fields followed by the protocol
// version and hardware bytes.
func ParseSystemInfo(p Packet) (SystemInfo, error) {
	if !p.IsResponse(ClassSystem, CmdSystemGetInfo) {
		return SystemInfo{}, fmt.Errorf("not a get info response: %s", p)
	}
	if len(p) < 16 {
		return SystemInfo{}, ErrShortPacket
	}
	return SystemInfo{
		Major:     le16(p, 4),
		Minor:     le16(p, 6),
		Patch:     le16(p, 8),
		Build:     le16(p, 10),
		LLVersion: le16(p, 12),
		Protocol:  p[14],
		Hardware:  p[15],
	}, nil
}
