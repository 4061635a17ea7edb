package version

const Version = "0.1.0"

// ProtocolVersion is the handshake version announced by specialists when the
// client does not request one they support.
const ProtocolVersion = "2025-06-18"

var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}
