package a2s

import (
	"encoding/json"
	"fmt"

	"github.com/woozymasta/a2squery/internal/bytestream"
)

// ServerType is the kind of server reported in A2S_INFO.
type ServerType uint8

// Server types.
const (
	ServerDedicated ServerType = iota + 1
	ServerNonDedicated
	ServerProxy
)

// Environment is the operating system reported in A2S_INFO.
type Environment uint8

// Environments.
const (
	EnvironmentLinux Environment = iota + 1
	EnvironmentWindows
	EnvironmentMac
)

func decodeServerType(c *bytestream.Cursor) (ServerType, error) {
	tag, err := c.Uint8()
	if err != nil {
		return 0, err
	}

	switch tag {
	case 'd':
		return ServerDedicated, nil
	case 'l':
		return ServerNonDedicated, nil
	case 'p':
		return ServerProxy, nil
	default:
		return 0, fmt.Errorf("unknown server type tag 0x%02x", tag)
	}
}

func decodeEnvironment(c *bytestream.Cursor) (Environment, error) {
	tag, err := c.Uint8()
	if err != nil {
		return 0, err
	}

	switch tag {
	case 'l':
		return EnvironmentLinux, nil
	case 'w':
		return EnvironmentWindows, nil
	case 'm', 'o': // 'o' is the legacy Mac tag
		return EnvironmentMac, nil
	default:
		return 0, fmt.Errorf("unknown environment tag 0x%02x", tag)
	}
}

func (t ServerType) String() string {
	switch t {
	case ServerDedicated:
		return "Dedicated"
	case ServerNonDedicated:
		return "NonDedicated"
	case ServerProxy:
		return "Proxy"
	default:
		return "Unknown"
	}
}

func (e Environment) String() string {
	switch e {
	case EnvironmentLinux:
		return "Linux"
	case EnvironmentWindows:
		return "Windows"
	case EnvironmentMac:
		return "Mac"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes the server type by name.
func (t ServerType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// MarshalJSON encodes the environment by name.
func (e Environment) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}
